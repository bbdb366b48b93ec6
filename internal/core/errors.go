package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFoundOrExpired covers both an absent key and an elapsed TTL.
	// The two are indistinguishable by design.
	ErrNotFoundOrExpired = errors.New("link not found or expired")

	// ErrInvalidQuota is returned for issuance requests with a non-positive
	// click quota or TTL.
	ErrInvalidQuota = errors.New("invalid quota")

	// ErrStoreUnavailable is a transient infrastructure failure. It is the
	// only error callers should retry, and never locally recoverable into a
	// grant: the gate fails closed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCorruptRecord marks a stored value that failed to deserialize.
	// Externally it is reported as ErrNotFoundOrExpired; internally it is
	// logged for diagnosis.
	ErrCorruptRecord = errors.New("corrupt record")
)

// DeniedError is a terminal denial of a consume attempt. Reason uses the
// operator taxonomy (expired, max_clicks, or a revocation reason); Message
// is safe to show a holder.
type DeniedError struct {
	Reason  string
	Message string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied (%s): %s", e.Reason, e.Message)
}

// MessageExpired is the holder-facing text for absent or expired links.
const MessageExpired = "This link has expired. Time-gate closed."

func MaxClicksMessage(max int) string {
	return fmt.Sprintf("Maximum access limit reached (%d clicks)", max)
}

func DeniedExpired() *DeniedError {
	return &DeniedError{Reason: ReasonExpired, Message: MessageExpired}
}

func DeniedMaxClicks(max int) *DeniedError {
	return &DeniedError{Reason: ReasonMaxClicks, Message: MaxClicksMessage(max)}
}

func DeniedDeactivated(reason string) *DeniedError {
	return &DeniedError{Reason: reason, Message: fmt.Sprintf("Link deactivated: %s", reason)}
}
