package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Caller authentication mode constants
const (
	AuthModeJWT     = "jwt"
	AuthModeHTTPAPI = "http_api"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Cache type constants
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// OAuthClientConfig holds the registered OAuth application for one provider
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // Overrides {BASE_URL}/{provider}-callback when set
	Scopes       []string
}

// Configured reports whether both halves of the client credential are present
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type Config struct {
	// Server settings
	ServerAddr           string
	BaseURL              string   // Public origin of this service, used for redirect URIs
	DashboardURL         string   // Where callbacks land when no return URL is known
	AllowedReturnOrigins []string // Origins a return_url may point at
	IsProduction         bool

	// Session settings (browser binding of OAuth state)
	SessionSecret string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Key material for sealing provider tokens at rest
	TokenEncryptionKey string

	// Caller authentication
	AuthMode          string // "jwt" or "http_api"
	AuthJWTSecret     string
	AuthJWTIssuer     string
	AuthJWTAudience   string
	AuthAPIURL        string // Identity platform base URL (http_api mode)
	AuthAPIKey        string // Anonymous API key sent as "apikey" header
	AuthAPITimeout    time.Duration
	AuthAPIMaxRetries int
	AuthAPIRetryDelay time.Duration
	AuthCacheTTL      time.Duration

	// OAuth flow settings
	OAuthStateTTL           time.Duration
	OAuthTimeout            time.Duration // HTTP client timeout for provider requests
	OAuthInsecureSkipVerify bool          // dev/testing only

	// Providers
	Slack  OAuthClientConfig
	Asana  OAuthClientConfig
	Monday OAuthClientConfig
	Google OAuthClientConfig
	Zoom   OAuthClientConfig

	SlackUserScopes []string

	// Trello uses an API key plus a user token instead of a client secret
	TrelloAPIKey      string
	TrelloAppName     string
	TrelloRedirectURL string
	TrelloScopes      []string

	// Slack bot used for server-initiated notifications
	SlackBotToken         string
	SlackDefaultChannelID string

	// Service-role key accepted on internal endpoints
	ServiceRoleKey string

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Cache and Redis
	CacheType        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string
	APIRateLimit             int // requests per minute per IP
	CallbackRateLimit        int
	RateLimitCleanupInterval time.Duration

	// Audit logging
	EnableAuditLogging bool
	AuditLogRetention  time.Duration
	AuditLogBufferSize int

	// Timeouts
	DBInitTimeout    time.Duration
	CacheInitTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "taskmind.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")
	dashboardURL := getEnv("DASHBOARD_URL", "http://localhost:5173/settings")

	return &Config{
		ServerAddr:           getEnv("SERVER_ADDR", ":8080"),
		BaseURL:              baseURL,
		DashboardURL:         dashboardURL,
		AllowedReturnOrigins: getEnvSlice("ALLOWED_RETURN_ORIGINS", []string{originOf(dashboardURL)}),
		IsProduction:         getEnv("ENVIRONMENT", "development") == "production",

		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 3600),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		// Caller authentication
		AuthMode:          getEnv("AUTH_MODE", AuthModeJWT),
		AuthJWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:     getEnv("AUTH_JWT_ISSUER", ""),
		AuthJWTAudience:   getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		AuthAPIURL:        strings.TrimRight(getEnv("AUTH_API_URL", ""), "/"),
		AuthAPIKey:        getEnv("AUTH_API_KEY", ""),
		AuthAPITimeout:    getEnvDuration("AUTH_API_TIMEOUT", 10*time.Second),
		AuthAPIMaxRetries: getEnvInt("AUTH_API_MAX_RETRIES", 2),
		AuthAPIRetryDelay: getEnvDuration("AUTH_API_RETRY_DELAY", 500*time.Millisecond),
		AuthCacheTTL:      getEnvDuration("AUTH_CACHE_TTL", time.Minute),

		// OAuth flow settings
		OAuthStateTTL:           getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
		OAuthTimeout:            getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),
		OAuthInsecureSkipVerify: getEnvBool("OAUTH_INSECURE_SKIP_VERIFY", false),

		Slack: loadOAuthClient("SLACK", []string{
			"channels:read", "chat:write", "team:read", "users:read",
		}),
		Asana:  loadOAuthClient("ASANA", []string{"default"}),
		Monday: loadOAuthClient("MONDAY", []string{"boards:read", "boards:write", "me:read"}),
		Google: loadOAuthClient("GOOGLE", []string{
			"https://www.googleapis.com/auth/calendar.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
		}),
		Zoom: loadOAuthClient("ZOOM", []string{"meeting:read", "user:read"}),

		SlackUserScopes: getEnvSlice("SLACK_USER_SCOPES", nil),

		TrelloAPIKey:      getEnv("TRELLO_API_KEY", ""),
		TrelloAppName:     getEnv("TRELLO_APP_NAME", "TaskMind"),
		TrelloRedirectURL: getEnv("TRELLO_REDIRECT_URL", ""),
		TrelloScopes:      getEnvSlice("TRELLO_SCOPES", []string{"read", "write"}),

		SlackBotToken:         getEnv("SLACK_BOT_TOKEN", ""),
		SlackDefaultChannelID: getEnv("SLACK_DEFAULT_CHANNEL_ID", ""),

		ServiceRoleKey: getEnv("SERVICE_ROLE_KEY", ""),

		// Metrics
		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		// Cache and Redis
		CacheType:        getEnv("CACHE_TYPE", CacheTypeMemory),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		// Rate limiting
		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		APIRateLimit:             getEnvInt("API_RATE_LIMIT", 120),
		CallbackRateLimit:        getEnvInt("CALLBACK_RATE_LIMIT", 20),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		// Audit logging
		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),

		DBInitTimeout:    getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		CacheInitTimeout: getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),
	}
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
		if c.AuthJWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthModeHTTPAPI:
		if c.AuthAPIURL == "" {
			return errors.New("AUTH_API_URL is required when AUTH_MODE=http_api")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE value: %q (must be: jwt, http_api)", c.AuthMode)
	}

	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE value: %q (must be: memory, redis)",
			c.RateLimitStore,
		)
	}

	switch c.CacheType {
	case CacheTypeMemory:
	case CacheTypeRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when CACHE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid CACHE_TYPE value: %q (must be: memory, redis)", c.CacheType)
	}

	if c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when RATE_LIMIT_STORE=redis")
	}

	if c.OAuthStateTTL <= 0 {
		return errors.New("OAUTH_STATE_TTL must be positive")
	}

	if c.IsProduction && c.TokenEncryptionKey == "" {
		return errors.New("TOKEN_ENCRYPTION_KEY is required in production")
	}

	if c.IsProduction && (c.SessionSecret == "" || c.SessionSecret == defaultSessionSecret) {
		return errors.New("SESSION_SECRET must be set in production")
	}

	if len(c.AllowedReturnOrigins) == 0 {
		return errors.New("ALLOWED_RETURN_ORIGINS must list at least one origin")
	}

	return nil
}

// defaultSessionSecret signs development session cookies only
const defaultSessionSecret = "session-secret-change-in-production"

func loadOAuthClient(prefix string, defaultScopes []string) OAuthClientConfig {
	return OAuthClientConfig{
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  getEnv(prefix+"_REDIRECT_URL", ""),
		Scopes:       getEnvSlice(prefix+"_SCOPES", defaultScopes),
	}
}

// originOf returns scheme://host of u, or u unchanged when it does not parse
func originOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return u
	}
	return parsed.Scheme + "://" + parsed.Host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
