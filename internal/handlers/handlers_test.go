package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/metrics"
	"github.com/VatsalPandya47/taskmind/internal/middleware"
	"github.com/VatsalPandya47/taskmind/internal/mocks"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/oauth"
	"github.com/VatsalPandya47/taskmind/internal/services"
	"github.com/VatsalPandya47/taskmind/internal/store"
	"github.com/VatsalPandya47/taskmind/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"
)

const (
	testUser   = "user-1"
	userToken  = "user-1-token"
	serviceKey = "service-role-key"
	returnURL  = "https://app.example/settings"
)

type testServer struct {
	router   *gin.Engine
	store    *store.Store
	sealer   *util.Sealer
	upstream *http.ServeMux
}

func newTestServer(t *testing.T, botToken string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BaseURL:              "https://api.taskmind.test",
		DashboardURL:         "https://app.example/dashboard",
		AllowedReturnOrigins: []string{"https://app.example"},
		OAuthStateTTL:        10 * time.Minute,
		Slack: config.OAuthClientConfig{
			ClientID:     "slack-id",
			ClientSecret: "slack-secret",
			Scopes:       []string{"channels:read", "chat:write"},
		},
		Asana:        config.OAuthClientConfig{ClientID: "asana-id", ClientSecret: "asana-secret"},
		TrelloAPIKey: "trello-key",
	}

	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sealer, err := util.NewSealer("test-encryption-key")
	require.NoError(t, err)

	endpoints := map[string]oauth2.Endpoint{
		"slack": {AuthURL: srv.URL + "/authorize/slack", TokenURL: srv.URL + "/token/slack"},
		"asana": {AuthURL: srv.URL + "/authorize/asana", TokenURL: srv.URL + "/token/asana"},
	}
	registry := oauth.NewRegistry(cfg, srv.Client(), oauth.WithEndpoints(endpoints))
	client := integrations.NewClient(srv.Client(), cfg.TrelloAPIKey, integrations.WithEndpoints(integrations.Endpoints{
		Slack:  srv.URL + "/slack",
		Trello: srv.URL + "/trello",
		Asana:  srv.URL + "/asana",
		Monday: srv.URL + "/monday",
		Google: srv.URL + "/google",
		Zoom:   srv.URL + "/zoom",
	}))

	recorder := metrics.NewNoopMetrics()
	audit := services.NewAuditService(s, false, 0)
	connections := services.NewConnectionService(s, registry, client, sealer, cfg, audit, recorder)
	actions := services.NewActionService(connections, client, audit)
	summaries := services.NewSummaryService(s, actions, audit, recorder)
	notify := services.NewNotifyService(client, botToken, "", audit, recorder)

	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockCallerVerifier(ctrl)
	verifier.EXPECT().Name().Return("mock").AnyTimes()
	verifier.EXPECT().
		Verify(gomock.Any(), userToken).
		Return(&models.Caller{UserID: testUser}, nil).
		AnyTimes()

	integrationHandler := NewIntegrationHandler(connections)
	proxyHandler := NewProxyHandler(actions)
	summaryHandler := NewSummaryHandler(summaries)
	notifyHandler := NewNotifyHandler(notify)
	auditHandler := NewAuditHandler(audit)

	r := gin.New()
	r.Use(sessions.Sessions("taskmind_session", cookie.NewStore([]byte("session-secret"))))
	r.GET("/slack-callback", integrationHandler.Callback("slack"))

	api := r.Group("/api", middleware.RequireCaller(verifier))
	api.GET("/integrations", integrationHandler.List)
	api.GET("/integrations/:provider/authorize", integrationHandler.Authorize)
	api.DELETE("/integrations/:provider", integrationHandler.Disconnect)
	api.GET("/slack/channels", proxyHandler.SlackChannels)
	api.GET("/asana/workspaces", proxyHandler.AsanaWorkspaces)
	api.POST("/notify/slack", notifyHandler.NotifySlack)
	api.GET("/summaries", summaryHandler.ListSummaries)
	api.GET("/summaries/:id", summaryHandler.GetSummary)
	api.POST("/summaries/:id/sync", summaryHandler.SyncSummary)
	api.GET("/audit", auditHandler.ListAuditLogs)

	internal := r.Group("/internal", middleware.ServiceKeyAuth(serviceKey))
	internal.POST("/summaries", summaryHandler.IngestSummary)

	return &testServer{router: r, store: s, sealer: sealer, upstream: mux}
}

// do sends a request as the test user unless the bearer is overridden
func (ts *testServer) do(t *testing.T, method, target string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+userToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// connect stores a sealed credential for the test user
func (ts *testServer) connect(t *testing.T, provider, token string) {
	t.Helper()
	sealed, err := ts.sealer.Seal(token)
	require.NoError(t, err)
	_, err = ts.store.UpsertProviderToken(context.Background(), &models.ProviderToken{
		UserID:      testUser,
		Provider:    provider,
		AccessToken: sealed,
	})
	require.NoError(t, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestConnectFlow_SessionBindsState(t *testing.T) {
	ts := newTestServer(t, "")
	ts.upstream.HandleFunc("/token/slack", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":           true,
			"access_token": "xoxb-1",
			"token_type":   "bot",
			"team":         map[string]any{"id": "T1", "name": "Acme"},
		})
	})

	w := ts.do(t, http.MethodGet, "/api/integrations/slack/authorize?return_url="+url.QueryEscape(returnURL), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result services.AuthorizeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.State)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Same browser: the session cookie carries the state back
	cb := ts.do(t, http.MethodGet, "/slack-callback?code=abc&state="+result.State, nil,
		func(r *http.Request) {
			r.Header.Del("Authorization")
			for _, c := range cookies {
				r.AddCookie(c)
			}
		})
	require.Equal(t, http.StatusFound, cb.Code)
	location, err := url.Parse(cb.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location.String(), returnURL))
	assert.Equal(t, "true", location.Query().Get("success"))

	w = ts.do(t, http.MethodGet, "/api/integrations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider":"slack"`)
}

func TestConnectFlow_CallbackWithoutSessionIsRejected(t *testing.T) {
	ts := newTestServer(t, "")
	ts.upstream.HandleFunc("/token/slack", func(w http.ResponseWriter, r *http.Request) {
		t.Error("code must not be exchanged")
	})

	w := ts.do(t, http.MethodGet, "/api/integrations/slack/authorize?return_url="+url.QueryEscape(returnURL), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.AuthorizeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	cb := ts.do(t, http.MethodGet, "/slack-callback?code=abc&state="+result.State, nil)
	require.Equal(t, http.StatusFound, cb.Code)
	location, err := url.Parse(cb.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, services.CallbackSecurityError, location.Query().Get("error"))
}

func TestAuthorize_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown provider",
			target:     "/api/integrations/jira/authorize?return_url=" + url.QueryEscape(returnURL),
			wantStatus: http.StatusNotFound,
			wantError:  errUnsupportedProvider,
		},
		{
			name:       "provider without credentials",
			target:     "/api/integrations/zoom/authorize?return_url=" + url.QueryEscape(returnURL),
			wantStatus: http.StatusInternalServerError,
			wantError:  errConfiguration,
		},
		{
			name:       "foreign return url",
			target:     "/api/integrations/slack/authorize?return_url=" + url.QueryEscape("https://evil.example/"),
			wantStatus: http.StatusBadRequest,
			wantError:  errInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decode(t, w)["error"])
		})
	}
}

func TestAPI_RequiresCaller(t *testing.T) {
	ts := newTestServer(t, "")
	w := ts.do(t, http.MethodGet, "/api/integrations", nil, func(r *http.Request) {
		r.Header.Del("Authorization")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProxy_NotConnected(t *testing.T) {
	ts := newTestServer(t, "")
	w := ts.do(t, http.MethodGet, "/api/slack/channels", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errNotConnected, decode(t, w)["error"])
}

func TestProxy_UpstreamFailureIs502(t *testing.T) {
	ts := newTestServer(t, "")
	ts.connect(t, models.ProviderAsana, "asana-token")
	ts.upstream.HandleFunc("/asana/workspaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"errors": []any{map[string]any{"message": "forbidden"}}})
	})

	w := ts.do(t, http.MethodGet, "/api/asana/workspaces", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, errUpstream, body["error"])
	assert.Equal(t, "asana", body["provider"])
	assert.EqualValues(t, http.StatusForbidden, body["upstream_status"])
	assert.Contains(t, body["upstream_body"], "forbidden")
}

func TestDisconnect(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.do(t, http.MethodDelete, "/api/integrations/slack", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errNotConnected, decode(t, w)["error"])

	ts.connect(t, models.ProviderSlack, "xoxp")
	w = ts.do(t, http.MethodDelete, "/api/integrations/slack", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"provider":"slack"}`, w.Body.String())
}

func TestNotify_BotNotConfigured(t *testing.T) {
	ts := newTestServer(t, "")
	w := ts.do(t, http.MethodPost, "/api/notify/slack", gin.H{"message": "hi", "channel": "C1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, errConfiguration, body["error"])
	assert.Equal(t, services.ErrSlackBotNotConfigured.Error(), body["error_description"])
}

func TestNotify_Posts(t *testing.T) {
	ts := newTestServer(t, "xoxb-bot")
	ts.upstream.HandleFunc("/slack/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-bot", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "channel": "C1", "ts": "1.2"})
	})

	w := ts.do(t, http.MethodPost, "/api/notify/slack", gin.H{"message": "hi", "channel": "C1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])
}

func ingest(t *testing.T, ts *testServer, items ...string) string {
	t.Helper()
	actionItems := make([]gin.H, 0, len(items))
	for _, text := range items {
		actionItems = append(actionItems, gin.H{"text": text})
	}
	w := ts.do(t, http.MethodPost, "/internal/summaries", gin.H{
		"user_id":       testUser,
		"meeting_title": "Weekly sync",
		"meeting_date":  "2026-10-01",
		"action_items":  actionItems,
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+serviceKey)
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	summary := decode(t, w)["summary"].(map[string]any)
	return summary["id"].(string)
}

func TestSummaries_IngestRequiresServiceKey(t *testing.T) {
	ts := newTestServer(t, "")
	w := ts.do(t, http.MethodPost, "/internal/summaries", gin.H{
		"user_id":       testUser,
		"meeting_title": "Weekly sync",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/internal/summaries", gin.H{"user_id": testUser},
		func(r *http.Request) {
			r.Header.Del("Authorization")
			r.Header.Set("apikey", serviceKey)
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaries_ListAndGet(t *testing.T) {
	ts := newTestServer(t, "")
	id := ingest(t, ts, "Draft spec")

	w := ts.do(t, http.MethodGet, "/api/summaries?page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["summaries"], 1)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])

	w = ts.do(t, http.MethodGet, "/api/summaries/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Draft spec")

	w = ts.do(t, http.MethodGet, "/api/summaries/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errNotFound, decode(t, w)["error"])
}

func TestSummaries_SyncPartialFailure(t *testing.T) {
	ts := newTestServer(t, "")
	ts.connect(t, models.ProviderTrello, "trello-token")
	calls := 0
	ts.upstream.HandleFunc("/trello/cards", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "card-1"})
	})
	id := ingest(t, ts, "One", "Two", "Three")

	w := ts.do(t, http.MethodPost, "/api/summaries/"+id+"/sync", gin.H{
		"provider": "trello",
		"target":   gin.H{"list_id": "list-1"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, errUpstream, body["error"])
	result := body["result"].(map[string]any)
	assert.EqualValues(t, 3, result["total"])
	assert.EqualValues(t, 1, result["created"])
	assert.Equal(t, 2, calls)

	w = ts.do(t, http.MethodPost, "/api/summaries/"+id+"/sync", gin.H{"provider": "trello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudit_ListsCallerEvents(t *testing.T) {
	ts := newTestServer(t, "")
	require.NoError(t, ts.store.CreateAuditLog(context.Background(), &models.AuditLog{
		ID:          "log-1",
		EventType:   models.EventSummaryIngested,
		ActorUserID: testUser,
		EventTime:   time.Now(),
		Success:     true,
	}))
	require.NoError(t, ts.store.CreateAuditLog(context.Background(), &models.AuditLog{
		ID:          "log-2",
		EventType:   models.EventSummaryIngested,
		ActorUserID: "someone-else",
		EventTime:   time.Now(),
		Success:     true,
	}))

	w := ts.do(t, http.MethodGet, "/api/audit?success=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	logs := body["logs"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].(map[string]any)["id"])
}
