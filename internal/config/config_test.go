package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DS_INTEGRATION_KEY", "integration-key")
	t.Setenv("DS_INTEGRATION_SECRET", "integration-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/connect")
	t.Setenv("STATE_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "docusign", cfg.RoutePrefix)
	require.Equal(t, "https://demo.docusign.net", cfg.BaseURL)
	require.True(t, cfg.ProcessEvents)
	require.True(t, cfg.AllowSilentAuth)
	require.Len(t, cfg.StateEncryptionKey, 32)
}

func TestLoadRequiresIntegrationKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DS_INTEGRATION_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsShortStateKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATE_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 16)))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadTrimsRoutePrefix(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DS_ROUTE_PREFIX", "/esign/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "esign", cfg.RoutePrefix)
}

func TestLoadDoesNotRequireAuthenticationServer(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Empty(t, cfg.AuthenticationServer)
}
