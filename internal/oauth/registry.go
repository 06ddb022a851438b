package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/models"

	"golang.org/x/oauth2"
)

// Registry holds one Provider per supported integration
type Registry struct {
	providers map[string]*Provider
	order     []string
}

// Option customises registry construction
type Option func(*registryOptions)

type registryOptions struct {
	endpoints map[string]oauth2.Endpoint
}

// WithEndpoints replaces provider endpoints, keyed by provider name.
// Used to point providers at local fakes.
func WithEndpoints(endpoints map[string]oauth2.Endpoint) Option {
	return func(o *registryOptions) {
		o.endpoints = endpoints
	}
}

// NewRegistry builds every provider from cfg. Providers without credentials
// are registered but report Configured() == false.
func NewRegistry(cfg *config.Config, httpClient *http.Client, opts ...Option) *Registry {
	options := &registryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	r := &Registry{providers: make(map[string]*Provider, len(specs))}
	for _, spec := range specs {
		if ep, ok := options.endpoints[spec.Name]; ok {
			// Keep the provider's auth style unless the override sets one
			if ep.AuthStyle == oauth2.AuthStyleAutoDetect {
				ep.AuthStyle = spec.Endpoint.AuthStyle
			}
			spec.Endpoint = ep
		}

		p := newProvider(spec, cfg, httpClient)
		r.providers[spec.Name] = p
		r.order = append(r.order, spec.Name)
	}
	return r
}

func newProvider(spec providerSpec, cfg *config.Config, httpClient *http.Client) *Provider {
	client := clientConfigFor(spec.Name, cfg)

	redirectURI := client.RedirectURL
	if redirectURI == "" && spec.Flow == FlowAuthCode {
		redirectURI = cfg.BaseURL + "/" + spec.Name + "-callback"
	}

	scopes := client.Scopes
	if spec.ScopeSeparator != "" && len(scopes) > 0 {
		scopes = []string{strings.Join(scopes, spec.ScopeSeparator)}
	}

	p := &Provider{
		spec: spec,
		config: &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Endpoint:     spec.Endpoint,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
		},
		extras:      url.Values{},
		httpClient:  httpClient,
		redirectURI: redirectURI,
		configured:  client.Configured(),
	}

	switch spec.Name {
	case models.ProviderSlack:
		if len(cfg.SlackUserScopes) > 0 {
			p.extras.Set("user_scope", strings.Join(cfg.SlackUserScopes, ","))
		}
		p.httpClient = slackHTTPClient(httpClient)
	case models.ProviderGoogle:
		p.extras.Set("access_type", "offline")
		p.extras.Set("prompt", "consent")
	case models.ProviderTrello:
		p.extras.Set("name", cfg.TrelloAppName)
		p.extras.Set("expiration", "never")
		// Trello only needs the public API key
		p.configured = client.ClientID != ""
	}

	return p
}

// clientConfigFor maps a provider onto its credential block
func clientConfigFor(name string, cfg *config.Config) config.OAuthClientConfig {
	switch name {
	case models.ProviderSlack:
		return cfg.Slack
	case models.ProviderAsana:
		return cfg.Asana
	case models.ProviderMonday:
		return cfg.Monday
	case models.ProviderGoogle:
		return cfg.Google
	case models.ProviderZoom:
		return cfg.Zoom
	case models.ProviderTrello:
		return config.OAuthClientConfig{
			ClientID:    cfg.TrelloAPIKey,
			RedirectURL: cfg.TrelloRedirectURL,
			Scopes:      cfg.TrelloScopes,
		}
	}
	return config.OAuthClientConfig{}
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (*Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns provider names in display order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns providers in display order
func (r *Registry) All() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}
