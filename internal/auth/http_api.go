package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
)

// userPath is the identity platform endpoint that resolves a session token
const userPath = "/auth/v1/user"

// HTTPAPIVerifier resolves bearer tokens by asking the identity platform who
// they belong to. Transient failures (5xx, 429, network) are retried.
type HTTPAPIVerifier struct {
	baseURL     string
	retryClient *retry.Client
}

// RetryClientOptions configures NewRetryClient
type RetryClientOptions struct {
	APIKey             string // Sent as the "apikey" header on every request
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxRetries         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
}

// NewRetryClient creates an HTTP client with retry support that stamps the
// platform API key on every request.
func NewRetryClient(opts RetryClientOptions) (*retry.Client, error) {
	mode := httpclient.AuthModeNone
	if opts.APIKey != "" {
		mode = httpclient.AuthModeSimple
	}

	client, err := httpclient.NewAuthClient(
		mode,
		opts.APIKey,
		httpclient.WithTimeout(opts.Timeout),
		httpclient.WithHeaderName("apikey"),
		httpclient.WithInsecureSkipVerify(opts.InsecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(opts.MaxRetries),
		retry.WithInitialRetryDelay(opts.RetryDelay),
		retry.WithMaxRetryDelay(opts.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}
	return retryClient, nil
}

// NewHTTPAPIVerifier creates a verifier against the platform at baseURL
func NewHTTPAPIVerifier(baseURL string, retryClient *retry.Client) *HTTPAPIVerifier {
	return &HTTPAPIVerifier{
		baseURL:     baseURL,
		retryClient: retryClient,
	}
}

// apiUser is the subset of the platform's user object we rely on
type apiUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify asks the platform to resolve tokenString
func (v *HTTPAPIVerifier) Verify(ctx context.Context, tokenString string) (*models.Caller, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	resp, err := v.retryClient.Get(
		ctx,
		v.baseURL+userPath,
		retry.WithHeader("Authorization", "Bearer "+tokenString),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrHTTPAPIInvalidResp)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return nil, ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// Limit body preview to 200 characters to avoid overwhelming logs
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf(
			"%w: HTTP %d - %s",
			ErrHTTPAPIInvalidResp,
			resp.StatusCode,
			bodyPreview,
		)
	}

	var user apiUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIInvalidResp, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user object missing id", ErrHTTPAPIInvalidResp)
	}

	return &models.Caller{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: tokenExpiry(tokenString),
	}, nil
}

// Name returns verifier name for logging and metrics
func (v *HTTPAPIVerifier) Name() string {
	return "http_api"
}
