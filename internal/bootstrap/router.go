package bootstrap

import (
	"log"
	"net/http"
	"net/url"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/metrics"
	"github.com/VatsalPandya47/taskmind/internal/middleware"
	"github.com/VatsalPandya47/taskmind/internal/oauth"
	"github.com/VatsalPandya47/taskmind/internal/services"
	"github.com/VatsalPandya47/taskmind/internal/store"
	"github.com/VatsalPandya47/taskmind/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// sessionCookieName carries the pending OAuth state between authorize and callback
const sessionCookieName = "taskmind_session"

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	registry *oauth.Registry,
	h handlerSet,
	verifier core.CallerVerifier,
	prometheusMetrics core.Recorder,
	auditService *services.AuditService,
	rateLimitRedisClient *redis.Client,
) (*gin.Engine, error) {
	// Setup Gin mode
	setupGinMode(cfg)
	r := gin.New()

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())
	r.Use(middleware.CORS(cfg.AllowedReturnOrigins))

	// Setup session middleware
	setupSessionMiddleware(r, cfg)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Setup rate limiting
	rateLimiters, err := setupRateLimiting(cfg, auditService, rateLimitRedisClient)
	if err != nil {
		return nil, err
	}

	// Setup all routes
	setupAllRoutes(r, cfg, registry, h, verifier, rateLimiters)

	// Log server startup info
	logServerStartup(cfg)

	return r, nil
}

// setupSessionMiddleware configures the cookie session holding pending OAuth state
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	cfg *config.Config,
	registry *oauth.Registry,
	h handlerSet,
	verifier core.CallerVerifier,
	rateLimiters rateLimitMiddlewares,
) {
	// Swagger documentation (development only)
	if !cfg.IsProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Printf("Swagger UI enabled at: %s/swagger/index.html", cfg.BaseURL)
	}

	// Provider redirects (public, browser)
	setupCallbackRoutes(r, registry, h, rateLimiters.callback)

	// Dashboard API (requires caller bearer token)
	api := r.Group("/api")
	api.Use(rateLimiters.api, middleware.RequireCaller(verifier))
	{
		api.GET("/integrations", h.integrations.List)
		api.GET("/integrations/:provider/authorize", h.integrations.Authorize)
		api.POST("/integrations/:provider/token", h.integrations.CaptureToken)
		api.DELETE("/integrations/:provider", h.integrations.Disconnect)
		api.PUT("/integrations/slack/channel", h.integrations.SelectSlackChannel)

		api.GET("/slack/channels", h.proxy.SlackChannels)
		api.POST("/slack/messages", h.proxy.PostSlackMessage)

		api.GET("/trello/boards", h.proxy.TrelloBoards)
		api.GET("/trello/boards/:id/lists", h.proxy.TrelloLists)
		api.POST("/trello/cards", h.proxy.CreateTrelloCard)

		api.GET("/asana/workspaces", h.proxy.AsanaWorkspaces)
		api.GET("/asana/workspaces/:id/projects", h.proxy.AsanaProjects)
		api.POST("/asana/tasks", h.proxy.CreateAsanaTask)

		api.GET("/monday/boards", h.proxy.MondayBoards)
		api.POST("/monday/items", h.proxy.CreateMondayItem)

		api.GET("/google/events", h.proxy.GoogleEvents)
		api.GET("/zoom/meetings", h.proxy.ZoomMeetings)

		api.POST("/notify/slack", h.notify.NotifySlack)

		api.GET("/summaries", h.summaries.ListSummaries)
		api.GET("/summaries/:id", h.summaries.GetSummary)
		api.POST("/summaries/:id/sync", h.summaries.SyncSummary)

		api.GET("/audit", h.audit.ListAuditLogs)
	}

	// Service-to-service routes (service role key)
	internal := r.Group("/internal")
	internal.Use(middleware.ServiceKeyAuth(cfg.ServiceRoleKey))
	{
		internal.POST("/summaries", h.summaries.IngestSummary)
	}
}

// setupCallbackRoutes registers one redirect endpoint per code-flow provider
// at the path of its redirect URI
func setupCallbackRoutes(
	r *gin.Engine,
	registry *oauth.Registry,
	h handlerSet,
	limiter gin.HandlerFunc,
) {
	seen := map[string]bool{}
	for _, p := range registry.All() {
		if p.Flow() != oauth.FlowAuthCode {
			continue
		}
		path := callbackPath(p)
		if seen[path] {
			log.Printf("WARNING: %s redirect path %s is already registered", p.Name(), path)
			continue
		}
		seen[path] = true
		r.GET(path, limiter, h.integrations.Callback(p.Name()))
	}
}

// callbackPath is the path component of the provider's redirect URI
func callbackPath(p *oauth.Provider) string {
	u, err := url.Parse(p.RedirectURI())
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/" + p.Name() + "-callback"
	}
	return u.Path
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Check server and database health status
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	object{status=string,database=string}	"Service is healthy"
//	@Failure		503	{object}	object{status=string,database=string}	"Service is unhealthy"
//	@Router			/health [get]
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(c.Request.Context()); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			log.Printf("[Health] Database ping failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Caller authentication mode: %s", cfg.AuthMode)
	log.Printf("TaskMind integration server starting on %s", cfg.ServerAddr)
	log.Printf("Provider redirects: %s/{provider}-callback", cfg.BaseURL)
	log.Printf("Dashboard: %s", cfg.DashboardURL)
	if cfg.ServiceRoleKey == "" {
		log.Printf("WARNING: SERVICE_ROLE_KEY not set, /internal endpoints will refuse requests")
	}
}
