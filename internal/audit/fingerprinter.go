package audit

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short, stable identifier for a token id. Audit
// entries and logs carry only the fingerprint: the raw id IS the
// capability, and an operator reading logs must not be able to replay it.
func Fingerprint(tokenID string) string {
	hash := sha256.Sum256([]byte(tokenID))
	return "tg1:" + hex.EncodeToString(hash[:8])
}
