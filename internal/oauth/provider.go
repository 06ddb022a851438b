package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/util"

	"golang.org/x/oauth2"
)

// Grant is the credential obtained from a successful exchange or capture
type Grant struct {
	AccessToken         string
	RefreshToken        string
	TokenType           string
	Scopes              string
	ExpiresAt           *time.Time
	ExternalAccountID   string
	ExternalAccountName string
	Metadata            models.TokenMetadata
}

// Provider is one configured integration built on x/oauth2
type Provider struct {
	spec        providerSpec
	config      *oauth2.Config
	extras      url.Values
	configured  bool
	httpClient  *http.Client
	redirectURI string
}

// Name returns the provider identifier used in routes and rows
func (p *Provider) Name() string { return p.spec.Name }

// DisplayName returns the human-readable provider name
func (p *Provider) DisplayName() string { return p.spec.DisplayName }

// Flow returns how the provider delivers credentials
func (p *Provider) Flow() Flow { return p.spec.Flow }

// Configured reports whether the client credentials are present
func (p *Provider) Configured() bool { return p.configured }

// Refreshable reports whether expired tokens can be renewed with a refresh token
func (p *Provider) Refreshable() bool { return p.spec.Refreshable }

// RedirectURI returns the exact redirect URI registered with the provider.
// Empty for implicit providers without a fixed landing page; the caller's
// return URL is used instead.
func (p *Provider) RedirectURI() string { return p.redirectURI }

// AuthURL builds the consent URL for state. redirectURI is sent verbatim and
// must be replayed unchanged on exchange.
func (p *Provider) AuthURL(state, redirectURI string) (string, error) {
	if !p.configured {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, p.spec.Name)
	}

	if p.spec.Flow == FlowImplicitToken {
		return p.implicitAuthURL(state, redirectURI), nil
	}

	cfg := *p.config
	cfg.RedirectURL = redirectURI

	opts := make([]oauth2.AuthCodeOption, 0, len(p.extras))
	for k := range p.extras {
		opts = append(opts, oauth2.SetAuthURLParam(k, p.extras.Get(k)))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// implicitAuthURL builds Trello's token-in-fragment authorize URL.
// Trello does not echo state, so it travels inside the return URL.
func (p *Provider) implicitAuthURL(state, redirectURI string) string {
	params := url.Values{}
	for k, v := range p.extras {
		params[k] = v
	}
	params.Set("key", p.config.ClientID)
	params.Set("return_url", util.AppendQuery(redirectURI, url.Values{
		"state":    {state},
		"provider": {p.spec.Name},
	}))
	params.Set("callback_method", "fragment")
	params.Set("response_type", "token")
	params.Set("scope", strings.Join(p.config.Scopes, p.spec.ScopeSeparator))
	return p.spec.Endpoint.AuthURL + "?" + params.Encode()
}

// Exchange trades an authorization code for a Grant. redirectURI must equal
// the value used to build the authorize URL.
func (p *Provider) Exchange(ctx context.Context, code, redirectURI string) (*Grant, error) {
	if !p.configured {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, p.spec.Name)
	}
	if p.spec.Flow != FlowAuthCode {
		return nil, ErrUnsupportedFlow
	}

	cfg := *p.config
	cfg.RedirectURL = redirectURI

	tok, err := cfg.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, describeTokenError(err)
	}

	grant := grantFromToken(tok)
	if p.spec.Name == models.ProviderSlack {
		applySlackExtras(grant, tok)
	}
	if p.spec.Name == models.ProviderAsana {
		applyAsanaExtras(grant, tok)
	}
	return grant, nil
}

// Refresh obtains a new access token. Providers may rotate the refresh token;
// when they do not, the old one is carried over.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if !p.spec.Refreshable || refreshToken == "" {
		return nil, ErrUnsupportedFlow
	}
	if !p.configured {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, p.spec.Name)
	}

	src := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, describeTokenError(err)
	}

	grant := grantFromToken(tok)
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return grant, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func grantFromToken(tok *oauth2.Token) *Grant {
	grant := &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Metadata:     models.TokenMetadata{},
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		grant.Scopes = scope
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		grant.ExpiresAt = &expiry
	}
	return grant
}

// describeTokenError keeps the upstream status and error code for callers
func describeTokenError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		code := rErr.ErrorCode
		if code == "" && rErr.Response != nil {
			code = rErr.Response.Status
		}
		detail := code
		if rErr.ErrorDescription != "" {
			detail += ": " + rErr.ErrorDescription
		}
		return fmt.Errorf("%w: %s", ErrExchangeFailed, detail)
	}
	return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
}
