package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DocuSign account and app integration.
	AccountID         string
	IntegrationKey    string
	IntegrationSecret string

	// Webhook authentication and processing.
	HMACSecret    string
	ProcessEvents bool

	// Provider endpoints. AuthenticationServer is deliberately not
	// validated here; its absence surfaces at first use.
	BaseURL              string
	AuthenticationServer string
	AllowSilentAuth      bool

	RoutePrefix      string
	StorageDirectory string

	// 32-byte key used to encrypt the OAuth security state.
	StateEncryptionKey []byte

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	integrationKey := strings.TrimSpace(os.Getenv("DS_INTEGRATION_KEY"))
	if integrationKey == "" {
		return Config{}, fmt.Errorf("DS_INTEGRATION_KEY is required")
	}
	integrationSecret := strings.TrimSpace(os.Getenv("DS_INTEGRATION_SECRET"))
	if integrationSecret == "" {
		return Config{}, fmt.Errorf("DS_INTEGRATION_SECRET is required")
	}

	stateKey, err := decodeStateKey(os.Getenv("STATE_ENCRYPTION_KEY"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		ServiceName:          getEnv("SERVICE_NAME", "docusign-connect"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		AccountID:            strings.TrimSpace(os.Getenv("DS_ACCOUNT_ID")),
		IntegrationKey:       integrationKey,
		IntegrationSecret:    integrationSecret,
		HMACSecret:           os.Getenv("DS_HMAC"),
		ProcessEvents:        getBool("DS_PROCESS_EVENTS", true),
		BaseURL:              getEnv("DS_BASE_URL", "https://demo.docusign.net"),
		AuthenticationServer: strings.TrimSpace(os.Getenv("DS_AUTHENTICATION_SERVER")),
		AllowSilentAuth:      getBool("DS_ALLOW_SILENT_AUTHENTICATION", true),
		RoutePrefix:          strings.Trim(getEnv("DS_ROUTE_PREFIX", "docusign"), "/"),
		StorageDirectory:     getEnv("DS_STORAGE_DIRECTORY", "storage/docusign"),
		StateEncryptionKey:   stateKey,
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func decodeStateKey(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("STATE_ENCRYPTION_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("STATE_ENCRYPTION_KEY must be base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("STATE_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
