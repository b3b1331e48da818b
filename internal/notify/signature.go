package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Webhook deliveries carry an X-Signature header holding the
// HMAC-SHA256 of the raw payload under the subscription secret, as
// lowercase hex.

// Sign computes the delivery signature for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig matches payload. Comparison is constant
// time; malformed hex never verifies.
func Verify(secret string, payload []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), want)
}
