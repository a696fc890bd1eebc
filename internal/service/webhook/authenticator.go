package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the provider's base64-encoded HMAC of the body.
const SignatureHeader = "X-DocuSign-Signature-1"

// Authenticator verifies that a notification genuinely originated from the
// provider, using the shared HMAC secret.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator constructs an authenticator for the shared secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IsAuthentic reports whether signature equals base64(HMAC-SHA256(body,
// secret)), compared in constant time. A missing header or an empty
// configured secret never authenticates.
func (a *Authenticator) IsAuthentic(body []byte, signature string) bool {
	if len(a.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
