package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/oauth"
	"github.com/VatsalPandya47/taskmind/internal/store"
	"github.com/VatsalPandya47/taskmind/internal/util"
)

// Callback error codes appended to the return URL
const (
	CallbackSecurityError  = "security_error"
	CallbackInvalidRequest = "invalid_request"
	CallbackExchangeFailed = "token_exchange_failed"
	CallbackDatabaseError  = "database_error"
)

// AuthorizeResult is the consent URL handed to the dashboard
type AuthorizeResult struct {
	AuthURL  string `json:"authUrl"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

// CallbackParams is what a provider redirect carries, plus the state bound
// to the browser session that started the flow
type CallbackParams struct {
	Provider         string
	State            string
	SessionState     string
	Code             string
	Error            string
	ErrorDescription string
}

// IntegrationStatus is one row of the connection overview
type IntegrationStatus struct {
	Provider     string               `json:"provider"`
	DisplayName  string               `json:"display_name"`
	Configured   bool                 `json:"configured"`
	Connected    bool                 `json:"connected"`
	AccountName  string               `json:"account_name,omitempty"`
	ConnectedAt  *time.Time           `json:"connected_at,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time           `json:"last_used_at,omitempty"`
	Metadata     models.TokenMetadata `json:"metadata,omitempty"`
	Refreshable  bool                 `json:"refreshable"`
	ImplicitFlow bool                 `json:"implicit_flow,omitempty"`
}

// ConnectionService owns the lifecycle of provider connections
type ConnectionService struct {
	store        *store.Store
	registry     *oauth.Registry
	client       *integrations.Client
	sealer       *util.Sealer
	config       *config.Config
	auditService *AuditService
	metrics      core.Recorder
}

func NewConnectionService(
	s *store.Store,
	registry *oauth.Registry,
	client *integrations.Client,
	sealer *util.Sealer,
	cfg *config.Config,
	auditService *AuditService,
	m core.Recorder,
) *ConnectionService {
	return &ConnectionService{
		store:        s,
		registry:     registry,
		client:       client,
		sealer:       sealer,
		config:       cfg,
		auditService: auditService,
		metrics:      m,
	}
}

// provider resolves a registered provider
func (s *ConnectionService) provider(name string) (*oauth.Provider, error) {
	p, ok := s.registry.Get(name)
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	return p, nil
}

// Authorize validates the return URL, records a single-use state and builds
// the provider consent URL. Nothing is persisted when the provider is not configured.
func (s *ConnectionService) Authorize(
	ctx context.Context,
	userID, providerName, returnURL string,
) (*AuthorizeResult, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	if !p.Configured() {
		log.Printf("[OAuth] Authorize %s rejected: client credentials missing", p.Name())
		s.metrics.RecordAuthorizeStarted(p.Name(), false)
		return nil, ErrProviderNotConfigured
	}

	if returnURL == "" {
		return nil, ErrMissingReturnURL
	}
	if !util.IsReturnURLAllowed(returnURL, s.config.AllowedReturnOrigins) {
		return nil, ErrInvalidReturnURL
	}

	redirectURI := p.RedirectURI()
	if redirectURI == "" {
		redirectURI = returnURL
	}

	state, err := util.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	authURL, err := p.AuthURL(state, redirectURI)
	if err != nil {
		if errors.Is(err, oauth.ErrNotConfigured) {
			return nil, ErrProviderNotConfigured
		}
		return nil, err
	}

	now := time.Now()
	if err := s.store.CreateOAuthState(ctx, &models.OAuthState{
		State:       state,
		UserID:      userID,
		Provider:    p.Name(),
		ReturnURL:   returnURL,
		RedirectURI: redirectURI,
		ExpiresAt:   now.Add(s.config.OAuthStateTTL),
		CreatedAt:   now,
	}); err != nil {
		log.Printf("[OAuth] Failed to store state for %s: %v", p.Name(), err)
		s.metrics.RecordDatabaseQueryError("create_oauth_state")
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.metrics.RecordAuthorizeStarted(p.Name(), true)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventIntegrationAuthorizeStarted,
		ActorUserID: userID,
		Provider:    p.Name(),
		Action:      "Authorization started",
		Details:     models.AuditDetails{"state": state, "return_url": returnURL},
		Success:     true,
	})

	return &AuthorizeResult{AuthURL: authURL, State: state, Provider: p.Name()}, nil
}

// callbackFailure is a terminal callback outcome
type callbackFailure struct {
	returnURL   string
	code        string
	description string
}

// HandleCallback runs the callback state machine and always returns the URL
// to redirect the browser to. Failures carry error and error_description.
func (s *ConnectionService) HandleCallback(ctx context.Context, params CallbackParams) string {
	userID, returnURL, fail := s.runCallback(ctx, params)
	if fail != nil {
		target := fail.returnURL
		if target == "" {
			target = s.config.DashboardURL
		}

		log.Printf("[OAuth] Callback for %s failed: %s: %s", params.Provider, fail.code, fail.description)
		s.metrics.RecordOAuthCallback(params.Provider, fail.code)

		eventType := models.EventIntegrationConnectFailed
		if fail.code == CallbackSecurityError {
			eventType = models.EventStateRejected
		}
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:    eventType,
			ActorUserID:  userID,
			Provider:     params.Provider,
			Action:       "OAuth callback failed",
			Details:      models.AuditDetails{"error_code": fail.code, "state": params.State},
			Success:      false,
			ErrorMessage: fail.description,
		})

		return util.AppendQuery(target, url.Values{
			"error":             {fail.code},
			"error_description": {fail.description},
			"provider":          {params.Provider},
		})
	}

	s.metrics.RecordOAuthCallback(params.Provider, "success")
	return util.AppendQuery(returnURL, url.Values{
		"success":  {"true"},
		"provider": {params.Provider},
	})
}

// runCallback walks received -> state_verified -> code_exchanged -> token_persisted
func (s *ConnectionService) runCallback(
	ctx context.Context,
	params CallbackParams,
) (string, string, *callbackFailure) {
	// received
	p, err := s.provider(params.Provider)
	if err != nil {
		return "", "", &callbackFailure{code: CallbackInvalidRequest, description: "Unsupported provider"}
	}
	if params.State == "" {
		return "", "", &callbackFailure{code: CallbackSecurityError, description: "Missing state parameter"}
	}

	// state_verified: the row is consumed before any other check so a
	// presented state can never be replayed.
	state, err := s.store.ConsumeOAuthState(ctx, params.State)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) && !errors.Is(err, store.ErrStateAlreadyUsed) {
			log.Printf("[OAuth] Failed to consume state: %v", err)
		}
		return "", "", &callbackFailure{
			code:        CallbackSecurityError,
			description: "Unknown or already used state",
		}
	}

	fail := func(code, description string) (string, string, *callbackFailure) {
		return state.UserID, state.ReturnURL, &callbackFailure{
			returnURL:   state.ReturnURL,
			code:        code,
			description: description,
		}
	}

	if state.Provider != p.Name() {
		return fail(CallbackSecurityError, "State was issued for another provider")
	}
	if state.IsExpired() {
		return fail(CallbackSecurityError, "Authorization request expired")
	}
	if subtle.ConstantTimeCompare([]byte(params.SessionState), []byte(params.State)) != 1 {
		return fail(CallbackSecurityError, "State does not match this browser session")
	}

	if params.Error != "" {
		description := params.ErrorDescription
		if description == "" {
			description = "Authorization was not granted"
		}
		return fail(params.Error, description)
	}

	// code_exchanged
	if params.Code == "" {
		return fail(CallbackInvalidRequest, "Missing authorization code")
	}
	grant, err := p.Exchange(ctx, params.Code, state.RedirectURI)
	if err != nil {
		return fail(CallbackExchangeFailed, err.Error())
	}
	s.identify(ctx, p.Name(), grant)

	// token_persisted
	if _, err := s.persist(ctx, state.UserID, p.Name(), grant); err != nil {
		return fail(CallbackDatabaseError, "Failed to save connection")
	}

	return state.UserID, state.ReturnURL, nil
}

// CaptureToken stores a token an implicit-flow provider handed to the browser.
// The state must have been issued to the same caller for the same provider.
func (s *ConnectionService) CaptureToken(
	ctx context.Context,
	userID, providerName, token, stateValue string,
) (*models.ProviderToken, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	if p.Flow() != oauth.FlowImplicitToken {
		return nil, ErrUnsupportedProvider
	}
	if !p.Configured() {
		return nil, ErrProviderNotConfigured
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	if stateValue == "" {
		return nil, ErrInvalidState
	}

	state, err := s.store.ConsumeOAuthState(ctx, stateValue)
	if err != nil {
		s.rejectState(ctx, userID, p.Name(), "unknown or already used state")
		return nil, ErrInvalidState
	}
	if state.Provider != p.Name() || state.UserID != userID || state.IsExpired() {
		s.rejectState(ctx, userID, p.Name(), "state does not belong to this request")
		return nil, ErrInvalidState
	}

	identity, err := s.client.Identify(ctx, p.Name(), token)
	if err != nil {
		log.Printf("[OAuth] %s token validation failed: %v", p.Name(), err)
		s.metrics.RecordOAuthCallback(p.Name(), CallbackExchangeFailed)
		var upErr *integrations.UpstreamError
		if errors.As(err, &upErr) && upErr.IsUnauthorized() {
			return nil, ErrProviderTokenRejected
		}
		return nil, err
	}

	grant := &oauth.Grant{AccessToken: token, Metadata: models.TokenMetadata{}}
	if identity != nil {
		grant.ExternalAccountID = identity.ID
		grant.ExternalAccountName = identity.Name
		if identity.Email != "" {
			grant.Metadata[models.MetaAccountEmail] = identity.Email
		}
	}

	row, err := s.persist(ctx, userID, p.Name(), grant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	s.metrics.RecordOAuthCallback(p.Name(), "success")
	return row, nil
}

func (s *ConnectionService) rejectState(ctx context.Context, userID, provider, reason string) {
	s.metrics.RecordOAuthCallback(provider, CallbackSecurityError)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventStateRejected,
		ActorUserID:  userID,
		Provider:     provider,
		Action:       "Token capture rejected",
		Success:      false,
		ErrorMessage: reason,
	})
}

// identify fills in the account behind a fresh grant. Failures only cost the display name.
func (s *ConnectionService) identify(ctx context.Context, provider string, grant *oauth.Grant) {
	if grant.ExternalAccountName != "" {
		return
	}
	identity, err := s.client.Identify(ctx, provider, grant.AccessToken)
	if err != nil {
		log.Printf("[OAuth] Could not identify %s account: %v", provider, err)
		return
	}
	if identity == nil {
		return
	}
	if grant.ExternalAccountID == "" {
		grant.ExternalAccountID = identity.ID
	}
	grant.ExternalAccountName = identity.Name
	if identity.Email != "" {
		grant.Metadata[models.MetaAccountEmail] = identity.Email
	}
}

// persist seals the grant and upserts the (user, provider) row
func (s *ConnectionService) persist(
	ctx context.Context,
	userID, provider string,
	grant *oauth.Grant,
) (*models.ProviderToken, error) {
	access, err := s.sealer.Seal(grant.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sealer.Seal(grant.RefreshToken)
	if err != nil {
		return nil, err
	}

	// Re-auth replaces credentials but keeps the user's channel selection
	metadata := grant.Metadata
	if existing, err := s.store.GetProviderToken(ctx, userID, provider); err == nil {
		for _, key := range []string{models.MetaSelectedChannelID, models.MetaSelectedChannelName} {
			if v := existing.MetadataValue(key); v != "" {
				if metadata == nil {
					metadata = models.TokenMetadata{}
				}
				metadata[key] = v
			}
		}
	}

	row, err := s.store.UpsertProviderToken(ctx, &models.ProviderToken{
		UserID:              userID,
		Provider:            provider,
		AccessToken:         access,
		RefreshToken:        refresh,
		TokenType:           grant.TokenType,
		Scopes:              grant.Scopes,
		ExpiresAt:           grant.ExpiresAt,
		ExternalAccountID:   grant.ExternalAccountID,
		ExternalAccountName: grant.ExternalAccountName,
		Metadata:            metadata,
	})
	if err != nil {
		log.Printf("[OAuth] Failed to persist %s token for user %s: %v", provider, userID, err)
		s.metrics.RecordDatabaseQueryError("upsert_provider_token")
		return nil, err
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventIntegrationConnected,
		ActorUserID: userID,
		Provider:    provider,
		Action:      "Integration connected",
		Details: models.AuditDetails{
			"account_name": grant.ExternalAccountName,
			"scopes":       grant.Scopes,
		},
		Success: true,
	})
	return row, nil
}

// Disconnect deletes the caller's connection to provider
func (s *ConnectionService) Disconnect(ctx context.Context, userID, providerName string) error {
	p, err := s.provider(providerName)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteProviderTokens(ctx, userID, p.Name())
	if err != nil {
		s.metrics.RecordDatabaseQueryError("delete_provider_tokens")
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if deleted == 0 {
		return ErrNotConnected
	}

	s.metrics.RecordDisconnect(p.Name())
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventIntegrationDisconnected,
		ActorUserID: userID,
		Provider:    p.Name(),
		Action:      "Integration disconnected",
		Success:     true,
	})
	return nil
}

// Status lists every registered provider with the caller's connection state
func (s *ConnectionService) Status(ctx context.Context, userID string) ([]IntegrationStatus, error) {
	tokens, err := s.store.ListProviderTokens(ctx, userID)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_provider_tokens")
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	byProvider := make(map[string]*models.ProviderToken, len(tokens))
	for i := range tokens {
		byProvider[tokens[i].Provider] = &tokens[i]
	}

	out := make([]IntegrationStatus, 0, len(s.registry.Names()))
	for _, p := range s.registry.All() {
		status := IntegrationStatus{
			Provider:     p.Name(),
			DisplayName:  p.DisplayName(),
			Configured:   p.Configured(),
			Refreshable:  p.Refreshable(),
			ImplicitFlow: p.Flow() == oauth.FlowImplicitToken,
		}
		if tok, ok := byProvider[p.Name()]; ok {
			connectedAt := tok.UpdatedAt
			status.Connected = true
			status.AccountName = tok.ExternalAccountName
			status.ConnectedAt = &connectedAt
			status.ExpiresAt = tok.ExpiresAt
			status.LastUsedAt = tok.LastUsedAt
			status.Metadata = tok.Metadata
		}
		out = append(out, status)
	}
	return out, nil
}

// SelectChannel stores the Slack channel notifications and syncs default to
func (s *ConnectionService) SelectChannel(
	ctx context.Context,
	userID, channelID, channelName string,
) (models.TokenMetadata, error) {
	if channelID == "" {
		return nil, ErrNoChannel
	}

	tok, err := s.store.GetProviderToken(ctx, userID, models.ProviderSlack)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	metadata := models.TokenMetadata{}
	for k, v := range tok.Metadata {
		metadata[k] = v
	}
	metadata[models.MetaSelectedChannelID] = channelID
	metadata[models.MetaSelectedChannelName] = channelName

	if err := s.store.UpdateProviderTokenMetadata(ctx, userID, models.ProviderSlack, metadata); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		s.metrics.RecordDatabaseQueryError("update_provider_token_metadata")
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventIntegrationUpdated,
		ActorUserID: userID,
		Provider:    models.ProviderSlack,
		Action:      "Slack channel selected",
		Details:     models.AuditDetails{"channel_id": channelID, "channel_name": channelName},
		Success:     true,
	})
	return metadata, nil
}

// Credential is an unsealed, ready-to-use provider token
type Credential struct {
	Token        string
	Row          *models.ProviderToken
	WasRefreshed bool
}

// Credential returns the caller's usable access token for provider. An
// expired token is refreshed once when the provider supports it and the
// refreshed credentials are persisted.
func (s *ConnectionService) Credential(ctx context.Context, userID, providerName string) (*Credential, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	row, err := s.store.GetProviderToken(ctx, userID, p.Name())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		s.metrics.RecordDatabaseQueryError("get_provider_token")
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	access, err := s.sealer.Open(row.AccessToken)
	if err != nil {
		log.Printf("[OAuth] Stored %s token for user %s cannot be opened: %v", p.Name(), userID, err)
		return nil, ErrNotConnected
	}

	cred := &Credential{Token: access, Row: row}
	if row.IsExpired() && p.Refreshable() && row.RefreshToken != "" {
		if err := s.refresh(ctx, p, cred); err != nil {
			return nil, err
		}
	}

	if err := s.store.TouchProviderToken(ctx, row.ID); err != nil {
		log.Printf("[OAuth] Failed to record use of %s token: %v", p.Name(), err)
	}
	return cred, nil
}

func (s *ConnectionService) refresh(ctx context.Context, p *oauth.Provider, cred *Credential) error {
	refreshToken, err := s.sealer.Open(cred.Row.RefreshToken)
	if err != nil {
		return ErrNotConnected
	}

	grant, err := p.Refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(p.Name(), false)
		log.Printf("[OAuth] Refresh of %s token for user %s failed: %v", p.Name(), cred.Row.UserID, err)
		return &integrations.UpstreamError{
			Provider:  p.Name(),
			Operation: "token.refresh",
			Body:      err.Error(),
		}
	}
	s.metrics.RecordTokenRefresh(p.Name(), true)

	access, err := s.sealer.Seal(grant.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.sealer.Seal(grant.RefreshToken)
	if err != nil {
		return err
	}

	cred.Row.AccessToken = access
	cred.Row.RefreshToken = refresh
	cred.Row.ExpiresAt = grant.ExpiresAt
	if err := s.store.UpdateProviderTokenCredentials(ctx, cred.Row); err != nil {
		s.metrics.RecordDatabaseQueryError("update_provider_token_credentials")
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	cred.Token = grant.AccessToken
	cred.WasRefreshed = true
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventTokenRefreshed,
		ActorUserID: cred.Row.UserID,
		Provider:    p.Name(),
		Action:      "Access token refreshed",
		Success:     true,
	})
	return nil
}
