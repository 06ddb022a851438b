package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/models"
)

// maxErrorBody caps how much of an upstream error body is kept for diagnostics
const maxErrorBody = 2048

// Endpoints are the API base URLs of each provider
type Endpoints struct {
	Slack  string
	Trello string
	Asana  string
	Monday string
	Google string
	Zoom   string
}

// DefaultEndpoints returns the production API base URLs
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Slack:  "https://slack.com/api",
		Trello: "https://api.trello.com/1",
		Asana:  "https://app.asana.com/api/1.0",
		Monday: "https://api.monday.com/v2",
		Google: "https://www.googleapis.com",
		Zoom:   "https://api.zoom.us/v2",
	}
}

// Identity is the provider-side account behind a token
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Client calls provider APIs with a user's (or the bot's) credential.
// Calls are made once; failures are returned, never retried.
type Client struct {
	httpClient   *http.Client
	endpoints    Endpoints
	trelloAPIKey string
	recorder     core.Recorder
}

// Option customises a Client
type Option func(*Client)

// WithEndpoints overrides the provider base URLs
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithRecorder records every upstream call
func WithRecorder(recorder core.Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// NewClient creates a provider API client. trelloAPIKey is the public Trello
// application key sent alongside every Trello user token.
func NewClient(httpClient *http.Client, trelloAPIKey string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient:   httpClient,
		endpoints:    DefaultEndpoints(),
		trelloAPIKey: trelloAPIKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identify resolves the account behind token for any provider.
// Providers without an identity endpoint return (nil, nil).
func (c *Client) Identify(ctx context.Context, provider, token string) (*Identity, error) {
	switch provider {
	case models.ProviderSlack:
		return c.SlackIdentify(ctx, token)
	case models.ProviderTrello:
		return c.TrelloIdentify(ctx, token)
	case models.ProviderAsana:
		return c.AsanaIdentify(ctx, token)
	case models.ProviderMonday:
		return c.MondayIdentify(ctx, token)
	case models.ProviderGoogle:
		return c.GoogleIdentify(ctx, token)
	case models.ProviderZoom:
		return c.ZoomIdentify(ctx, token)
	}
	return nil, nil //nolint:nilnil // unknown providers have no identity
}

// call describes one upstream request
type call struct {
	provider  string
	operation string
	method    string
	url       string
	header    http.Header
	body      any
}

// do sends the request and decodes a 2xx JSON body into out.
// Non-2xx responses become *UpstreamError.
func (c *Client) do(ctx context.Context, req call, out any) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", req.provider, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.provider, err)
	}
	for k, v := range req.header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(req, 0, time.Since(start))
		return &UpstreamError{
			Provider:  req.provider,
			Operation: req.operation,
			Body:      err.Error(),
		}
	}
	defer resp.Body.Close()
	c.record(req, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", req.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[Integrations] %s %s returned %d", req.provider, req.operation, resp.StatusCode)
		return &UpstreamError{
			Provider:  req.provider,
			Operation: req.operation,
			Status:    resp.StatusCode,
			Body:      truncate(string(raw), maxErrorBody),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &UpstreamError{
			Provider:  req.provider,
			Operation: req.operation,
			Status:    resp.StatusCode,
			Code:      "malformed_response",
			Body:      truncate(string(raw), maxErrorBody),
		}
	}
	return nil
}

func (c *Client) record(req call, status int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamCall(req.provider, req.operation, status, d)
	}
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
