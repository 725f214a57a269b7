package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ComputeSignature builds the X-Verify value for a payload: hex SHA-256 over
// payload + saltKey, suffixed with "###" + saltIndex so the receiver knows
// which salt generation signed it.
func ComputeSignature(payload []byte, saltKey, saltIndex string) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(saltKey))
	return hex.EncodeToString(h.Sum(nil)) + "###" + saltIndex
}

// VerifyWebhookSignature checks a provider webhook's X-Verify header against
// the configured salt. Comparison is constant-time; malformed or empty input
// is simply invalid, never an error.
func VerifyWebhookSignature(payload []byte, signatureHeader, saltKey, saltIndex string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(saltKey) == "" {
		return false
	}

	expected := ComputeSignature(payload, saltKey, saltIndex)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(sig)), []byte(expected)) == 1
}
