// Package signature computes and verifies HMAC-SHA256 payload signatures
// for outbound webhook deliveries. Subscribers recompute the signature over
// the exact request body with their shared secret and compare it against
// the X-Webhook-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header is the HTTP header carrying the hex-encoded signature.
const Header = "X-Webhook-Signature"

// Sign returns the hex-encoded HMAC-SHA256 of body using secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the HMAC-SHA256 of body under secret.
// Comparison is constant-time.
func Verify(secret string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
