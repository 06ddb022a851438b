package bootstrap

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/auth"
	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/oauth"

	"github.com/appleboy/go-httpclient"
)

// maxAuthRetryDelay caps the backoff between identity platform retries
const maxAuthRetryDelay = 10 * time.Second

// createProviderHTTPClient creates the client used for token exchange and
// every provider API call
func createProviderHTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.OAuthInsecureSkipVerify {
		log.Printf("WARNING: OAuth TLS verification is disabled (OAUTH_INSECURE_SKIP_VERIFY=true)")
	}

	httpClient, err := httpclient.NewAuthClient(
		httpclient.AuthModeNone,
		"",
		httpclient.WithTimeout(cfg.OAuthTimeout),
		httpclient.WithInsecureSkipVerify(cfg.OAuthInsecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider HTTP client: %w", err)
	}
	return httpClient, nil
}

// logProvidersStatus logs which integrations have credentials
func logProvidersStatus(registry *oauth.Registry) {
	var configured, missing []string
	for _, p := range registry.All() {
		if p.Configured() {
			configured = append(configured, p.Name())
		} else {
			missing = append(missing, p.Name())
		}
	}
	log.Printf("Integrations configured: %v", configured)
	if len(missing) > 0 {
		log.Printf("Integrations without credentials (connect will fail): %v", missing)
	}
}

// initializeCallerVerifier builds the verifier selected by AUTH_MODE and
// wraps it with the caller cache
func initializeCallerVerifier(
	cfg *config.Config,
	callerCache core.Cache[models.Caller],
	recorder core.Recorder,
) (core.CallerVerifier, error) {
	var verifier core.CallerVerifier

	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		retryClient, err := auth.NewRetryClient(auth.RetryClientOptions{
			APIKey:             cfg.AuthAPIKey,
			Timeout:            cfg.AuthAPITimeout,
			InsecureSkipVerify: cfg.OAuthInsecureSkipVerify,
			MaxRetries:         cfg.AuthAPIMaxRetries,
			RetryDelay:         cfg.AuthAPIRetryDelay,
			MaxRetryDelay:      maxAuthRetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create identity platform client: %w", err)
		}
		verifier = auth.NewHTTPAPIVerifier(cfg.AuthAPIURL, retryClient)
		log.Printf("Caller authentication: identity platform at %s", cfg.AuthAPIURL)

	default:
		verifier = auth.NewJWTVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
		log.Println("Caller authentication: HS256 JWT")
	}

	return auth.NewCachedVerifier(verifier, callerCache, cfg.AuthCacheTTL, recorder), nil
}
