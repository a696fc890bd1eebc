package domain

import "time"

// RefreshWindow is how long after issuance a refresh token stays usable.
// DocuSign refresh tokens live 30 days; a day of slack avoids racing the
// provider-side cutoff.
const RefreshWindow = 29 * 24 * time.Hour

// Session is the token bundle held for one user session. All four fields
// are persisted together; a session with only part of the bundle is never
// written.
type Session struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`

	// Account details resolved at login from the provider userinfo.
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	BasePath    string `json:"base_path,omitempty"`
}

// HasValidAccessToken reports whether an access token is present and
// unexpired at the given instant.
func (s Session) HasValidAccessToken(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.AccessExpiresAt)
}

// CanRefresh reports whether a refresh token is present and still inside
// its window at the given instant.
func (s Session) CanRefresh(now time.Time) bool {
	return s.RefreshToken != "" && now.Before(s.RefreshExpiresAt)
}

// SecurityState is the anti-forgery payload carried through the OAuth
// redirect round trip, encrypted into the opaque state parameter.
type SecurityState struct {
	Nonce    string `json:"nonce"`
	Redirect string `json:"redirect"`
}
