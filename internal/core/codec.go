package core

import (
	"encoding/json"
	"fmt"
)

// EncodeToken serializes a record to the store's value representation.
// The JSON schema is the canonical on-the-wire form; both network backends
// store it verbatim.
func EncodeToken(t *AccessToken) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding token record: %w", err)
	}
	return b, nil
}

// DecodeToken deserializes a stored value. Any value that does not parse
// into a structurally valid record yields ErrCorruptRecord; callers treat
// that as NotFoundOrExpired externally (fail closed) and log it.
func DecodeToken(b []byte) (*AccessToken, error) {
	var t AccessToken
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &t, nil
}

func (t *AccessToken) validate() error {
	if t.TokenID == "" {
		return fmt.Errorf("missing token_id")
	}
	if t.MaxClicks < 1 {
		return fmt.Errorf("max_clicks %d out of range", t.MaxClicks)
	}
	if t.CurrentClicks < 0 || t.CurrentClicks > t.MaxClicks {
		return fmt.Errorf("current_clicks %d out of range [0,%d]", t.CurrentClicks, t.MaxClicks)
	}
	if t.ExpiresAt.IsZero() {
		return fmt.Errorf("missing expires_at")
	}
	switch t.State {
	case StateActive, StateExhausted, StateRevoked:
	default:
		return fmt.Errorf("unknown state %q", t.State)
	}
	if t.State != StateActive && t.DeactivationReason == "" {
		return fmt.Errorf("terminal state %q without deactivation_reason", t.State)
	}
	return nil
}
