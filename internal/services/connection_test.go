package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/metrics"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/oauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slackTokenEndpoint issues a new bot token per exchange
func (e *testEnv) slackTokenEndpoint() *atomic.Int32 {
	var issued atomic.Int32
	e.mux.HandleFunc("/token/slack", func(w http.ResponseWriter, r *http.Request) {
		n := issued.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":           true,
			"access_token": fmt.Sprintf("xoxb-token-%d", n),
			"token_type":   "bot",
			"scope":        "channels:read,chat:write",
			"bot_user_id":  "UBOT",
			"team":         map[string]any{"id": "T1", "name": "Acme"},
		})
	})
	return &issued
}

func TestAuthorize_Slack(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.conn.Authorize(context.Background(), testUser, "slack", returnURL)
	require.NoError(t, err)

	assert.Equal(t, "slack", result.Provider)
	assert.NotEmpty(t, result.State)

	q := mustQuery(t, result.AuthURL)
	assert.Equal(t, "slack-id", q.Get("client_id"))
	assert.Equal(t, "https://api.taskmind.test/slack-callback", q.Get("redirect_uri"))
	assert.Equal(t, result.State, q.Get("state"))
}

func TestAuthorize_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		provider  string
		returnURL string
		want      error
	}{
		{"unknown provider", "dropbox", returnURL, ErrUnsupportedProvider},
		{"missing client configuration", "monday", returnURL, ErrProviderNotConfigured},
		{"missing return url", "slack", "", ErrMissingReturnURL},
		{"foreign return url", "slack", "https://evil.example/steal", ErrInvalidReturnURL},
		{"javascript return url", "slack", "javascript:alert(1)", ErrInvalidReturnURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.conn.Authorize(ctx, testUser, tt.provider, tt.returnURL)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
		})
	}
}

func TestAuthorize_UnconfiguredForEveryProvider(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Slack.ClientSecret = ""

	registry := oauth.NewRegistry(env.cfg, nil)
	conn := NewConnectionService(
		env.store, registry, nil, env.sealer, env.cfg, env.audit, metrics.NewNoopMetrics(),
	)
	for _, p := range registry.All() {
		if p.Configured() {
			continue
		}
		result, err := conn.Authorize(context.Background(), testUser, p.Name(), returnURL)
		assert.ErrorIs(t, err, ErrProviderNotConfigured, p.Name())
		assert.Nil(t, result, p.Name())
	}
}

func TestCallback_Success(t *testing.T) {
	env := newTestEnv(t)
	env.slackTokenEndpoint()
	ctx := context.Background()

	auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
	require.NoError(t, err)

	redirect := env.conn.HandleCallback(ctx, CallbackParams{
		Provider:     "slack",
		State:        auth.State,
		SessionState: auth.State,
		Code:         "code-1",
	})

	assert.True(t, strings.HasPrefix(redirect, returnURL))
	q := mustQuery(t, redirect)
	assert.Equal(t, "true", q.Get("success"))
	assert.Equal(t, "slack", q.Get("provider"))
	assert.Empty(t, q.Get("error"))

	// The exact redirect URI is replayed on exchange
	exchanges := env.requestsTo("/token/slack")
	require.Len(t, exchanges, 1)
	assert.Equal(t, "https://api.taskmind.test/slack-callback", exchanges[0].PostForm.Get("redirect_uri"))
	assert.Equal(t, "code-1", exchanges[0].PostForm.Get("code"))

	tokens, err := env.store.ListProviderTokens(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "Acme", tokens[0].ExternalAccountName)
	assert.Equal(t, "T1", tokens[0].ExternalAccountID)
	assert.NotEqual(t, "xoxb-token-1", tokens[0].AccessToken)

	cred, err := env.conn.Credential(ctx, testUser, "slack")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-token-1", cred.Token)
}

func TestCallback_ReconnectUpdatesSameRow(t *testing.T) {
	env := newTestEnv(t)
	env.slackTokenEndpoint()
	ctx := context.Background()

	connect := func() {
		auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
		require.NoError(t, err)
		redirect := env.conn.HandleCallback(ctx, CallbackParams{
			Provider: "slack", State: auth.State, SessionState: auth.State, Code: "code",
		})
		require.Equal(t, "true", mustQuery(t, redirect).Get("success"))
	}

	connect()
	first, err := env.store.GetProviderToken(ctx, testUser, "slack")
	require.NoError(t, err)

	_, err = env.conn.SelectChannel(ctx, testUser, "C42", "general")
	require.NoError(t, err)

	connect()
	tokens, err := env.store.ListProviderTokens(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, first.ID, tokens[0].ID)
	assert.Equal(t, "C42", tokens[0].MetadataValue(models.MetaSelectedChannelID))

	cred, err := env.conn.Credential(ctx, testUser, "slack")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-token-2", cred.Token)
}

func TestCallback_SecurityFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		params func(state string) CallbackParams
		target string
	}{
		{
			name: "session state mismatch",
			params: func(state string) CallbackParams {
				return CallbackParams{Provider: "slack", State: state, SessionState: "other", Code: "c"}
			},
			target: returnURL,
		},
		{
			name: "no session state",
			params: func(state string) CallbackParams {
				return CallbackParams{Provider: "slack", State: state, Code: "c"}
			},
			target: returnURL,
		},
		{
			name: "state for another provider",
			params: func(state string) CallbackParams {
				return CallbackParams{Provider: "google", State: state, SessionState: state, Code: "c"}
			},
			target: returnURL,
		},
		{
			name: "unknown state",
			params: func(string) CallbackParams {
				return CallbackParams{Provider: "slack", State: "forged", SessionState: "forged", Code: "c"}
			},
			target: "https://app.example/dashboard",
		},
		{
			name: "missing state",
			params: func(string) CallbackParams {
				return CallbackParams{Provider: "slack", Code: "c"}
			},
			target: "https://app.example/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.slackTokenEndpoint()

			auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
			require.NoError(t, err)

			redirect := env.conn.HandleCallback(ctx, tt.params(auth.State))

			assert.True(t, strings.HasPrefix(redirect, tt.target), redirect)
			q := mustQuery(t, redirect)
			assert.Equal(t, CallbackSecurityError, q.Get("error"))
			assert.NotEmpty(t, q.Get("error_description"))

			assert.Empty(t, env.requestsTo("/token/slack"))
			tokens, err := env.store.ListProviderTokens(ctx, testUser)
			require.NoError(t, err)
			assert.Empty(t, tokens)
		})
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	issued := env.slackTokenEndpoint()
	ctx := context.Background()

	auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
	require.NoError(t, err)
	params := CallbackParams{Provider: "slack", State: auth.State, SessionState: auth.State, Code: "c"}

	first := env.conn.HandleCallback(ctx, params)
	assert.Equal(t, "true", mustQuery(t, first).Get("success"))

	replay := env.conn.HandleCallback(ctx, params)
	assert.Equal(t, CallbackSecurityError, mustQuery(t, replay).Get("error"))
	assert.Equal(t, int32(1), issued.Load())
}

func TestCallback_ExpiredState(t *testing.T) {
	env := newTestEnv(t)
	env.slackTokenEndpoint()
	ctx := context.Background()

	require.NoError(t, env.store.CreateOAuthState(ctx, &models.OAuthState{
		State:       "stale",
		UserID:      testUser,
		Provider:    "slack",
		ReturnURL:   returnURL,
		RedirectURI: "https://api.taskmind.test/slack-callback",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	redirect := env.conn.HandleCallback(ctx, CallbackParams{
		Provider: "slack", State: "stale", SessionState: "stale", Code: "c",
	})
	q := mustQuery(t, redirect)
	assert.Equal(t, CallbackSecurityError, q.Get("error"))
	assert.Equal(t, "Authorization request expired", q.Get("error_description"))
	assert.Empty(t, env.requestsTo("/token/slack"))
}

func TestCallback_ProviderErrorAndMissingCode(t *testing.T) {
	env := newTestEnv(t)
	env.slackTokenEndpoint()
	ctx := context.Background()

	auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
	require.NoError(t, err)
	denied := env.conn.HandleCallback(ctx, CallbackParams{
		Provider:         "slack",
		State:            auth.State,
		SessionState:     auth.State,
		Error:            "access_denied",
		ErrorDescription: "User cancelled",
	})
	q := mustQuery(t, denied)
	assert.Equal(t, "access_denied", q.Get("error"))
	assert.Equal(t, "User cancelled", q.Get("error_description"))
	assert.Equal(t, "slack", q.Get("provider"))

	auth, err = env.conn.Authorize(ctx, testUser, "slack", returnURL)
	require.NoError(t, err)
	noCode := env.conn.HandleCallback(ctx, CallbackParams{
		Provider: "slack", State: auth.State, SessionState: auth.State,
	})
	assert.Equal(t, CallbackInvalidRequest, mustQuery(t, noCode).Get("error"))

	assert.Empty(t, env.requestsTo("/token/slack"))
}

func TestCallback_ExchangeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mux.HandleFunc("/token/slack", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "invalid_code"})
	})
	ctx := context.Background()

	auth, err := env.conn.Authorize(ctx, testUser, "slack", returnURL)
	require.NoError(t, err)
	redirect := env.conn.HandleCallback(ctx, CallbackParams{
		Provider: "slack", State: auth.State, SessionState: auth.State, Code: "bad",
	})

	q := mustQuery(t, redirect)
	assert.Equal(t, CallbackExchangeFailed, q.Get("error"))
	assert.Contains(t, q.Get("error_description"), "invalid_code")

	tokens, err := env.store.ListProviderTokens(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestCaptureToken_Trello(t *testing.T) {
	env := newTestEnv(t)
	env.mux.HandleFunc("/trello/members/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Authorization"), `oauth_token="good-token"`) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "m1", "username": "ada", "fullName": "Ada L"})
	})
	ctx := context.Background()

	auth, err := env.conn.Authorize(ctx, testUser, "trello", returnURL)
	require.NoError(t, err)
	q := mustQuery(t, auth.AuthURL)
	assert.Equal(t, "trello-key", q.Get("key"))
	assert.Equal(t, auth.State, mustQuery(t, q.Get("return_url")).Get("state"))

	t.Run("state owned by another caller", func(t *testing.T) {
		_, err := env.conn.CaptureToken(ctx, otherUser, "trello", "good-token", auth.State)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("consumed state cannot be reused", func(t *testing.T) {
		_, err := env.conn.CaptureToken(ctx, testUser, "trello", "good-token", auth.State)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejected token", func(t *testing.T) {
		fresh, err := env.conn.Authorize(ctx, testUser, "trello", returnURL)
		require.NoError(t, err)
		_, err = env.conn.CaptureToken(ctx, testUser, "trello", "bad-token", fresh.State)
		assert.ErrorIs(t, err, ErrProviderTokenRejected)
	})

	t.Run("valid token is stored", func(t *testing.T) {
		fresh, err := env.conn.Authorize(ctx, testUser, "trello", returnURL)
		require.NoError(t, err)
		row, err := env.conn.CaptureToken(ctx, testUser, "trello", "good-token", fresh.State)
		require.NoError(t, err)
		assert.Equal(t, "Ada L", row.ExternalAccountName)
		assert.Nil(t, row.ExpiresAt)
	})

	t.Run("code flow providers are refused", func(t *testing.T) {
		_, err := env.conn.CaptureToken(ctx, testUser, "slack", "tok", "state")
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})
}

func TestDisconnect_OnlyCallersRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connect(t, testUser, "asana", &oauth.Grant{AccessToken: "mine"})
	env.connect(t, otherUser, "asana", &oauth.Grant{AccessToken: "theirs"})

	require.NoError(t, env.conn.Disconnect(ctx, testUser, "asana"))

	_, err := env.store.GetProviderToken(ctx, testUser, "asana")
	assert.Error(t, err)
	other, err := env.store.GetProviderToken(ctx, otherUser, "asana")
	require.NoError(t, err)
	assert.Equal(t, otherUser, other.UserID)

	assert.ErrorIs(t, env.conn.Disconnect(ctx, testUser, "asana"), ErrNotConnected)
	assert.ErrorIs(t, env.conn.Disconnect(ctx, testUser, "dropbox"), ErrUnsupportedProvider)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, testUser, "slack", &oauth.Grant{
		AccessToken:         "xoxb",
		ExternalAccountName: "Acme",
		Metadata:            models.TokenMetadata{models.MetaTeamName: "Acme"},
	})

	statuses, err := env.conn.Status(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, statuses, 6)

	byName := map[string]IntegrationStatus{}
	for _, s := range statuses {
		byName[s.Provider] = s
	}
	assert.True(t, byName["slack"].Connected)
	assert.Equal(t, "Acme", byName["slack"].AccountName)
	assert.NotNil(t, byName["slack"].ConnectedAt)
	assert.False(t, byName["google"].Connected)
	assert.True(t, byName["google"].Configured)
	assert.False(t, byName["monday"].Configured)
	assert.True(t, byName["trello"].ImplicitFlow)
}

func TestSelectChannel_NotConnected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.conn.SelectChannel(context.Background(), testUser, "C1", "general")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = env.conn.SelectChannel(context.Background(), testUser, "", "general")
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestCredential_RefreshesExpiredTokenOnce(t *testing.T) {
	env := newTestEnv(t)
	var refreshes atomic.Int32
	env.mux.HandleFunc("/token/google", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "google-rt", r.PostForm.Get("refresh_token"))
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "google-fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	env.mux.HandleFunc("/google/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer google-fresh", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": "e1", "summary": "Standup"}}})
	})

	past := time.Now().Add(-time.Hour)
	env.connect(t, testUser, "google", &oauth.Grant{
		AccessToken:  "google-stale",
		RefreshToken: "google-rt",
		ExpiresAt:    &past,
	})

	events, err := env.actions.GoogleEvents(context.Background(), testUser, integrations.EventQuery{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(1), refreshes.Load())

	// The refreshed credential was persisted, so no second refresh
	_, err = env.actions.GoogleEvents(context.Background(), testUser, integrations.EventQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())

	row, err := env.store.GetProviderToken(context.Background(), testUser, "google")
	require.NoError(t, err)
	require.NotNil(t, row.ExpiresAt)
	assert.True(t, row.ExpiresAt.After(time.Now()))
	assert.NotNil(t, row.LastUsedAt)
	rt, err := env.sealer.Open(row.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "google-rt", rt)
}

func TestCredential_RefreshFailureIsUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.mux.HandleFunc("/token/google", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	})

	past := time.Now().Add(-time.Hour)
	env.connect(t, testUser, "google", &oauth.Grant{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    &past,
	})

	_, err := env.actions.GoogleEvents(context.Background(), testUser, integrations.EventQuery{})
	var upErr *integrations.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, upErr.Body, "invalid_grant")
	assert.Empty(t, env.requestsTo("/google/calendar/v3/calendars/primary/events"))
}
