package docusign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperpath/docusign-connect/internal/config"
	"github.com/paperpath/docusign-connect/internal/domain"
)

// OAuthClient encapsulates the token-acquiring calls against DocuSign.
type OAuthClient interface {
	BuildLoginURL(state, callbackURL string) (string, error)
	ExchangeCode(ctx context.Context, code, callbackURL string) (*TokenResult, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenResult, error)
}

// TokenResult is the outcome of a successful code or refresh exchange.
// Account fields are populated only by the code grant, which resolves the
// resource owner; the refresh grant reuses the account already in session.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	UserName  string
	UserEmail string

	AccountID   string
	AccountName string
	BasePath    string
}

// HTTPOAuthClient is the default HTTP implementation.
type HTTPOAuthClient struct {
	cfg        config.Config
	httpClient *http.Client
}

var _ OAuthClient = (*HTTPOAuthClient)(nil)

// NewHTTPOAuthClient constructs the default OAuthClient.
func NewHTTPOAuthClient(cfg config.Config, client *http.Client) *HTTPOAuthClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOAuthClient{cfg: cfg, httpClient: client}
}

// authServer returns the configured authorization server URL, or the fatal
// configuration error when it is unset. Checked at use, not construction.
func (c *HTTPOAuthClient) authServer() (string, error) {
	server := strings.TrimRight(strings.TrimSpace(c.cfg.AuthenticationServer), "/")
	if server == "" {
		return "", domain.ErrAuthServerNotConfigured
	}
	return server, nil
}

// BuildLoginURL constructs the authorization endpoint URL. When silent
// authentication is disallowed an explicit login prompt is forced.
func (c *HTTPOAuthClient) BuildLoginURL(state, callbackURL string) (string, error) {
	server, err := c.authServer()
	if err != nil {
		return "", err
	}

	loginURL, err := url.Parse(server + "/oauth/auth")
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}

	params := loginURL.Query()
	params.Set("response_type", "code")
	params.Set("scope", "signature")
	params.Set("client_id", c.cfg.IntegrationKey)
	params.Set("redirect_uri", callbackURL)
	params.Set("state", state)
	if !c.cfg.AllowSilentAuth {
		params.Set("prompt", "login")
	}
	loginURL.RawQuery = params.Encode()

	return loginURL.String(), nil
}

// ExchangeCode performs the authorization-code grant and resolves the
// account from the userinfo endpoint.
func (c *HTTPOAuthClient) ExchangeCode(ctx context.Context, code, callbackURL string) (*TokenResult, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", callbackURL)

	result, err := c.requestToken(ctx, "authorization_code", data)
	if err != nil {
		return nil, err
	}

	if err := c.resolveAccount(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExchangeRefreshToken performs the refresh-token grant. Failure signals
// the caller must fall back to a full interactive login.
func (c *HTTPOAuthClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenResult, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, "refresh_token", data)
}

func (c *HTTPOAuthClient) requestToken(ctx context.Context, grant string, data url.Values) (*TokenResult, error) {
	server, err := c.authServer()
	if err != nil {
		return nil, err
	}

	data.Set("client_id", c.cfg.IntegrationKey)
	data.Set("client_secret", c.cfg.IntegrationSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExchangeError{Grant: grant, Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.ExchangeError{Grant: grant, Message: "read token response", Err: err}
	}

	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ExchangeError{Grant: grant, Message: fmt.Sprintf("decode token response: status=%d", resp.StatusCode), Err: err}
	}
	if resp.StatusCode >= 300 || raw.Error != "" {
		message := raw.Error
		if raw.ErrorDesc != "" {
			message = raw.ErrorDesc
		}
		if message == "" {
			message = fmt.Sprintf("status=%d", resp.StatusCode)
		}
		return nil, &domain.ExchangeError{Grant: grant, Message: message}
	}
	if raw.AccessToken == "" {
		return nil, &domain.ExchangeError{Grant: grant, Message: "empty access token"}
	}

	return &TokenResult{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(raw.ExpiresIn) * time.Second),
	}, nil
}

// userInfo mirrors the provider userinfo response.
type userInfo struct {
	Sub      string        `json:"sub"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Accounts []accountInfo `json:"accounts"`
}

type accountInfo struct {
	AccountID   string `json:"account_id"`
	IsDefault   bool   `json:"is_default"`
	AccountName string `json:"account_name"`
	BaseURI     string `json:"base_uri"`
}

const basePathSuffix = "/restapi"

// resolveAccount loads the resource owner and selects the configured
// target account or, absent one, the account flagged as default. A target
// id missing from the user's accounts is a fatal configuration error.
func (c *HTTPOAuthClient) resolveAccount(ctx context.Context, result *TokenResult) error {
	server, err := c.authServer()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/oauth/userinfo", nil)
	if err != nil {
		return fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ExchangeError{Grant: "authorization_code", Message: "userinfo request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.ExchangeError{Grant: "authorization_code", Message: "read userinfo", Err: err}
	}
	if resp.StatusCode >= 300 {
		return &domain.ExchangeError{Grant: "authorization_code", Message: fmt.Sprintf("userinfo failed: status=%d", resp.StatusCode)}
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return &domain.ExchangeError{Grant: "authorization_code", Message: "decode userinfo", Err: err}
	}

	account, err := selectAccount(info.Accounts, c.cfg.AccountID)
	if err != nil {
		return err
	}

	result.UserName = info.Name
	result.UserEmail = info.Email
	result.AccountID = account.AccountID
	result.AccountName = account.AccountName
	result.BasePath = strings.TrimRight(account.BaseURI, "/") + basePathSuffix
	return nil
}

func selectAccount(accounts []accountInfo, targetID string) (accountInfo, error) {
	if targetID != "" {
		for _, account := range accounts {
			if account.AccountID == targetID {
				return account, nil
			}
		}
		return accountInfo{}, fmt.Errorf("targeted account %s not found among user accounts", targetID)
	}
	for _, account := range accounts {
		if account.IsDefault {
			return account, nil
		}
	}
	return accountInfo{}, &domain.ExchangeError{Grant: "authorization_code", Message: "no default account"}
}
