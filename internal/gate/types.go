package gate

import (
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

// IssueRequest mints a new self-destructing link.
type IssueRequest struct {
	UserID    string
	SessionID string
	LinkKind  string

	// MaxClicks must be >= 1, TTL > 0. Callers normally pass the configured
	// defaults (3 clicks, 24h).
	MaxClicks int
	TTL       time.Duration

	// Actor tag for the issuance audit event. Defaults to "owner".
	Actor string
}

type IssueResponse struct {
	TokenID   string    `json:"token_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxClicks int       `json:"max_clicks"`
}

// AccessResult is returned by a successful consume. TTLRemaining is derived
// from the record's fixed expiry, so it is non-increasing across calls.
type AccessResult struct {
	Subject         core.SubjectRef
	LinkKind        string
	ClicksRemaining int
	TTLRemaining    time.Duration
	ExpiresAt       time.Time

	// Warning is set when this consume left at most one click.
	Warning bool
}

// Status is the read-only view peek returns. Always available, even for
// absent tokens (Valid=false, Reason=expired): a status probe must never
// error on a dead link, and must never burn a click on a live one.
type Status struct {
	Valid           bool
	State           core.State
	Reason          string
	ClicksRemaining int
	TTLRemaining    time.Duration
	ExpiresAt       time.Time
}

// RevokeResult reports the terminal state after a revoke call.
// AlreadyTerminal means the token was exhausted or revoked before this
// call; that is a no-op success, since the desired end state already holds.
type RevokeResult struct {
	State           core.State
	Reason          string
	AlreadyTerminal bool
}
