package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestIsAuthentic(t *testing.T) {
	auth := NewAuthenticator("shared-secret")
	body := []byte(`{"event":"envelopeCompleted"}`)

	require.True(t, auth.IsAuthentic(body, signBody("shared-secret", body)))
}

func TestIsAuthenticRejectsWrongSecret(t *testing.T) {
	auth := NewAuthenticator("shared-secret")
	body := []byte(`{"event":"envelopeCompleted"}`)

	require.False(t, auth.IsAuthentic(body, signBody("other-secret", body)))
}

func TestIsAuthenticRejectsTamperedBody(t *testing.T) {
	auth := NewAuthenticator("shared-secret")
	body := []byte(`{"event":"envelopeCompleted"}`)
	signature := signBody("shared-secret", body)

	tampered := append([]byte(nil), body...)
	tampered[0] ^= 0x01
	require.False(t, auth.IsAuthentic(tampered, signature))
}

func TestIsAuthenticRejectsMissingSignature(t *testing.T) {
	auth := NewAuthenticator("shared-secret")
	require.False(t, auth.IsAuthentic([]byte("{}"), ""))
}

func TestIsAuthenticRejectsWithoutConfiguredSecret(t *testing.T) {
	auth := NewAuthenticator("")
	body := []byte("{}")
	require.False(t, auth.IsAuthentic(body, signBody("", body)))
}
