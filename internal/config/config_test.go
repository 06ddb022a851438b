package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AuthMode:             AuthModeJWT,
		AuthJWTSecret:        "secret",
		RateLimitStore:       RateLimitStoreMemory,
		CacheType:            CacheTypeMemory,
		OAuthStateTTL:        10 * time.Minute,
		AllowedReturnOrigins: []string{"http://localhost:5173"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid jwt mode",
			mutate: func(c *Config) {},
		},
		{
			name: "jwt mode without secret",
			mutate: func(c *Config) {
				c.AuthJWTSecret = ""
			},
			expectError: true,
			errorMsg:    "AUTH_JWT_SECRET is required",
		},
		{
			name: "http api mode requires url",
			mutate: func(c *Config) {
				c.AuthMode = AuthModeHTTPAPI
			},
			expectError: true,
			errorMsg:    "AUTH_API_URL is required",
		},
		{
			name: "valid http api mode",
			mutate: func(c *Config) {
				c.AuthMode = AuthModeHTTPAPI
				c.AuthAPIURL = "https://project.example.co"
			},
		},
		{
			name: "unknown auth mode",
			mutate: func(c *Config) {
				c.AuthMode = "ldap"
			},
			expectError: true,
			errorMsg:    `invalid AUTH_MODE value: "ldap"`,
		},
		{
			name: "invalid rate limit store",
			mutate: func(c *Config) {
				c.RateLimitStore = "reddis"
			},
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name: "redis cache without address",
			mutate: func(c *Config) {
				c.CacheType = CacheTypeRedis
			},
			expectError: true,
			errorMsg:    "REDIS_ADDR is required when CACHE_TYPE=redis",
		},
		{
			name: "redis rate limit without address",
			mutate: func(c *Config) {
				c.EnableRateLimit = true
				c.RateLimitStore = RateLimitStoreRedis
			},
			expectError: true,
			errorMsg:    "REDIS_ADDR is required when RATE_LIMIT_STORE=redis",
		},
		{
			name: "redis rate limit ignored when disabled",
			mutate: func(c *Config) {
				c.EnableRateLimit = false
				c.RateLimitStore = RateLimitStoreRedis
			},
		},
		{
			name: "production requires encryption key",
			mutate: func(c *Config) {
				c.IsProduction = true
			},
			expectError: true,
			errorMsg:    "TOKEN_ENCRYPTION_KEY is required",
		},
		{
			name: "production rejects default session secret",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.TokenEncryptionKey = "key"
				c.SessionSecret = defaultSessionSecret
			},
			expectError: true,
			errorMsg:    "SESSION_SECRET must be set in production",
		},
		{
			name: "production with explicit secrets",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.TokenEncryptionKey = "key"
				c.SessionSecret = "a-real-secret"
			},
		},
		{
			name: "non-positive state ttl",
			mutate: func(c *Config) {
				c.OAuthStateTTL = 0
			},
			expectError: true,
			errorMsg:    "OAUTH_STATE_TTL must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ProviderCredentialsFromEnv(t *testing.T) {
	t.Setenv("SLACK_CLIENT_ID", "slack-id")
	t.Setenv("SLACK_CLIENT_SECRET", "slack-secret")
	t.Setenv("SLACK_SCOPES", "channels:read, chat:write")
	t.Setenv("BASE_URL", "https://api.taskmind.dev/")
	t.Setenv("DASHBOARD_URL", "https://app.taskmind.dev/settings")

	cfg := Load()

	assert.True(t, cfg.Slack.Configured())
	assert.Equal(t, []string{"channels:read", "chat:write"}, cfg.Slack.Scopes)
	assert.False(t, cfg.Asana.Configured())
	assert.Equal(t, "https://api.taskmind.dev", cfg.BaseURL)
	assert.Equal(t, []string{"https://app.taskmind.dev"}, cfg.AllowedReturnOrigins)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_BAD_DURATION", "soon")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "1")

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_BAD_DURATION", time.Second))
	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.Equal(t, []string{"a"}, getEnvSlice("TEST_MISSING_SLICE", []string{"a"}))
}
