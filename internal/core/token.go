package core

import "time"

// State is the persisted lifecycle state of an access token.
// "expired" is deliberately not a State: an expired record is either evicted
// by the store's TTL or detected at read time from ExpiresAt.
type State string

const (
	StateActive    State = "active"
	StateExhausted State = "exhausted"
	StateRevoked   State = "revoked"
)

// Denial reasons as they appear in responses and audit logs.
const (
	ReasonExpired   = "expired"
	ReasonMaxClicks = "max_clicks"

	// DefaultRevokeReason is used when a revocation request carries no reason.
	// Custom reasons are stored and surfaced verbatim.
	DefaultRevokeReason = "user_revoked"
)

// Actor tags for audit trail entries.
const (
	ActorHolder   = "holder"
	ActorOwner    = "owner"
	ActorOperator = "operator"
)

// Audit trail actions.
const (
	AuditIssued   = "issued"
	AuditConsumed = "consumed"
	AuditRevoked  = "revoked"
)

// SubjectRef identifies the owning principal and the logical session the
// token unlocks. Both are opaque to the gate; the issuing collaborator
// decides what they resolve to.
type SubjectRef struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// AuditEvent is one entry of the append-only trail embedded in the record.
// It lives inside the same atomically-updated value as the click counter,
// so an event and the mutation it documents are never observed out of sync.
type AuditEvent struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	Time   time.Time `json:"time"`
}

// AccessToken is the record stored per issued link, keyed by
// "access_token:<token_id>" with a TTL equal to its remaining lifetime.
type AccessToken struct {
	TokenID  string     `json:"token_id"`
	Subject  SubjectRef `json:"subject"`
	LinkKind string     `json:"link_kind"`

	// MaxClicks is fixed at issuance; CurrentClicks only ever grows and is
	// mutated exclusively by the atomic consume transform.
	MaxClicks     int `json:"max_clicks"`
	CurrentClicks int `json:"current_clicks"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	State State `json:"state"`

	// DeactivationReason is set exactly when State leaves StateActive.
	DeactivationReason string `json:"deactivation_reason,omitempty"`

	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	AuditLog []AuditEvent `json:"audit_log"`
}

// ClicksRemaining never reports negative even for records written by an
// older version with a lower MaxClicks.
func (t *AccessToken) ClicksRemaining() int {
	if r := t.MaxClicks - t.CurrentClicks; r > 0 {
		return r
	}
	return 0
}

// ExpiredAt reports whether the token's time window has elapsed at now,
// regardless of whether the store has physically evicted the record yet.
func (t *AccessToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *AccessToken) Append(action, actor string, at time.Time) {
	t.AuditLog = append(t.AuditLog, AuditEvent{Action: action, Actor: actor, Time: at})
}
