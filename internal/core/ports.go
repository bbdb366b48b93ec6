package core

import (
	"context"
	"errors"
	"time"
)

// UpdateFunc transforms the current stored value into its successor.
// It may be called more than once when the backend retries an optimistic
// compare-and-swap, so it must be a pure function of old.
//
// capTTL > 0 caps the key's remaining TTL at that duration after the write
// (used to shorten terminal records to the audit-retention window). The TTL
// is otherwise preserved; an update never extends a key's life.
//
// Returning ErrUpdateAborted stops the update without writing; any other
// error is propagated unchanged.
type UpdateFunc func(old []byte) (next []byte, capTTL time.Duration, err error)

// ErrUpdateAborted is returned by an UpdateFunc to abandon the update
// without modifying the stored value.
var ErrUpdateAborted = errors.New("update aborted")

// KV is the durable counter store: a shared, TTL-capable key-value space.
// It is the single source of truth across all service instances; the gate
// never decides from in-process state.
//
// Update is the only way a stored record may be mutated after creation.
// A bare Get followed by Put on a mutation path reintroduces the
// time-of-check/time-of-use race this interface exists to prevent.
type KV interface {
	// Put unconditionally writes value with the given expiry, overwriting
	// any prior value and its TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the current value, or ErrNotFoundOrExpired.
	Get(ctx context.Context, key string) ([]byte, error)

	// TTL returns the key's remaining lifetime, or ErrNotFoundOrExpired.
	TTL(ctx context.Context, key string) (time.Duration, error)

	Delete(ctx context.Context, key string) error

	// Update applies fn to the current value and writes the result back
	// atomically with respect to all other writers of the key. It returns
	// the written value, ErrNotFoundOrExpired if the key is absent, or
	// ErrStoreUnavailable if atomicity could not be guaranteed (in which
	// case nothing may be assumed committed).
	Update(ctx context.Context, key string, fn UpdateFunc) ([]byte, error)

	Ping(ctx context.Context) error
	Close() error
}

// AuditEntry is one operator-facing audit record, written per operation.
// Distinct from the in-record AuditEvent trail: this is the service's own
// diagnostic log and is never consulted for authorization decisions.
type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID).
	ID string `json:"id"`

	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "link.issue", "link.access").
	Action string `json:"action"`

	// TokenFingerprint identifies the token without disclosing the
	// capability itself.
	TokenFingerprint string `json:"token_fingerprint,omitempty"`

	Subject  *SubjectRef `json:"subject,omitempty"`
	LinkKind string      `json:"link_kind,omitempty"`

	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that support inspection
// (currently the in-memory auditor).
type AuditReader interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
}
