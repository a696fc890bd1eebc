package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/adapter/docusign"
	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/metrics"
	"github.com/paperpath/docusign-connect/internal/repository"
)

// Redirect instructs the caller where to send the user next.
// LoginRequired marks a redirect to the provider's login page rather than
// the originally requested target.
type Redirect struct {
	Location      string
	LoginRequired bool
}

// Manager orchestrates the authorization session lifecycle: valid token
// proceeds, expired-but-refreshable refreshes, anything else goes through
// an interactive login.
type Manager struct {
	store   repository.SessionStore
	guard   *StateGuard
	oauth   docusign.OAuthClient
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

// NewManager wires the session manager.
func NewManager(
	store repository.SessionStore,
	guard *StateGuard,
	oauth docusign.OAuthClient,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	return &Manager{
		store:   store,
		guard:   guard,
		oauth:   oauth,
		metrics: collector,
		logger:  logger,
		now:     time.Now,
	}
}

// Establish decides how the caller reaches redirectTarget: directly when a
// valid access token exists, after a refresh exchange when only the
// refresh token is usable, or via the provider login page otherwise.
// A failed refresh degrades to interactive login instead of surfacing.
func (m *Manager) Establish(ctx context.Context, sessionID, redirectTarget, callbackURL string) (*Redirect, error) {
	now := m.now()

	current, err := m.store.GetTokens(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if current != nil {
		if current.HasValidAccessToken(now) {
			return &Redirect{Location: redirectTarget}, nil
		}
		if current.CanRefresh(now) {
			result, err := m.oauth.ExchangeRefreshToken(ctx, current.RefreshToken)
			m.metrics.RecordExchange("refresh_token", err == nil)
			if err == nil {
				if err := m.saveTokens(ctx, sessionID, result, current); err != nil {
					return nil, err
				}
				return &Redirect{Location: redirectTarget}, nil
			}
			m.logger.Warn("refresh exchange failed, falling back to interactive login",
				zap.Error(err))
		}
	}

	state, err := m.guard.Issue(ctx, sessionID, redirectTarget)
	if err != nil {
		return nil, err
	}
	loginURL, err := m.oauth.BuildLoginURL(state, callbackURL)
	if err != nil {
		return nil, err
	}
	return &Redirect{Location: loginURL, LoginRequired: true}, nil
}

// CompleteLogin validates the returned state, exchanges the code, persists
// the token bundle, and returns the redirect target recovered from the
// state. The state check is never bypassed.
func (m *Manager) CompleteLogin(ctx context.Context, sessionID, returnedState, returnedCode, callbackURL string) (string, error) {
	redirectTarget, err := m.guard.Validate(ctx, sessionID, returnedState)
	if err != nil {
		return "", err
	}

	result, err := m.oauth.ExchangeCode(ctx, returnedCode, callbackURL)
	m.metrics.RecordExchange("authorization_code", err == nil)
	if err != nil {
		return "", err
	}

	if err := m.saveTokens(ctx, sessionID, result, nil); err != nil {
		return "", err
	}
	return redirectTarget, nil
}

// Refresh is the explicit manual refresh entry point. Unlike the
// refreshable branch of Establish, failures surface to the caller.
func (m *Manager) Refresh(ctx context.Context, sessionID string) (string, error) {
	current, err := m.store.GetTokens(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if current == nil || !current.CanRefresh(m.now()) {
		return "", domain.ErrNoSession
	}

	result, err := m.oauth.ExchangeRefreshToken(ctx, current.RefreshToken)
	m.metrics.RecordExchange("refresh_token", err == nil)
	if err != nil {
		return "", err
	}
	if err := m.saveTokens(ctx, sessionID, result, current); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// Current returns the stored token bundle, or ErrNoSession when the
// session holds no valid access token.
func (m *Manager) Current(ctx context.Context, sessionID string) (*domain.Session, error) {
	current, err := m.store.GetTokens(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if current == nil || !current.HasValidAccessToken(m.now()) {
		return nil, domain.ErrNoSession
	}
	return current, nil
}

// Logout clears the token bundle and any pending state.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if err := m.store.ClearState(ctx, sessionID); err != nil {
		return err
	}
	return m.store.ClearTokens(ctx, sessionID)
}

// saveTokens persists the bundle from an exchange result. The refresh
// window restarts from issuance; account details resolved at login are
// carried forward on refresh since the refresh grant does not return them.
func (m *Manager) saveTokens(ctx context.Context, sessionID string, result *docusign.TokenResult, previous *domain.Session) error {
	now := m.now()
	session := domain.Session{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		AccessExpiresAt:  result.ExpiresAt,
		RefreshExpiresAt: now.Add(domain.RefreshWindow),
		AccountID:        result.AccountID,
		AccountName:      result.AccountName,
		BasePath:         result.BasePath,
	}
	if previous != nil {
		if session.AccountID == "" {
			session.AccountID = previous.AccountID
		}
		if session.AccountName == "" {
			session.AccountName = previous.AccountName
		}
		if session.BasePath == "" {
			session.BasePath = previous.BasePath
		}
	}
	if err := m.store.SaveTokens(ctx, sessionID, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
