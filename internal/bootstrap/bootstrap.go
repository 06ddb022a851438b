package bootstrap

import (
	"context"
	"net/http"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/oauth"
	"github.com/VatsalPandya47/taskmind/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	MetricsCache         core.Cache[int64]
	MetricsCacheCloser   func() error
	CallerCache          core.Cache[models.Caller]
	CallerCacheCloser    func() error
	RateLimitRedisClient *redis.Client

	// Providers
	ProviderHTTPClient *http.Client
	Registry           *oauth.Registry
	Integrations       *integrations.Client
	CallerVerifier     core.CallerVerifier

	// Services
	Services serviceSet

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	ctx := context.Background()
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		return err
	}

	// Phase 3: Initialize provider clients and caller verification
	if err := app.initializeProviders(); err != nil {
		return err
	}

	// Phase 4: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 5: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 6: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Caller cache (verified bearer tokens)
	app.CallerCache, app.CallerCacheCloser, err = initializeCallerCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeProviders sets up the outbound HTTP client, provider registry,
// provider API client and caller verifier
func (app *Application) initializeProviders() error {
	var err error

	app.ProviderHTTPClient, err = createProviderHTTPClient(app.Config)
	if err != nil {
		return err
	}

	app.Registry = oauth.NewRegistry(app.Config, app.ProviderHTTPClient)
	logProvidersStatus(app.Registry)

	app.Integrations = integrations.NewClient(
		app.ProviderHTTPClient,
		app.Config.TrelloAPIKey,
		integrations.WithRecorder(app.MetricsRecorder),
	)

	app.CallerVerifier, err = initializeCallerVerifier(
		app.Config,
		app.CallerCache,
		app.MetricsRecorder,
	)
	return err
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() error {
	var err error
	app.Services, err = initializeServices(
		app.Config,
		app.DB,
		app.Registry,
		app.Integrations,
		app.MetricsRecorder,
	)
	return err
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(app.Services)

	var err error
	app.Router, err = setupRouter(
		app.Config,
		app.DB,
		app.Registry,
		app.HandlerSet,
		app.CallerVerifier,
		app.MetricsRecorder,
		app.Services.audit,
		app.RateLimitRedisClient,
	)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addAuditServiceShutdownJob(m, app.Services.audit)
	addAuditLogCleanupJob(m, app.Config, app.Services.audit)
	addExpiredStateCleanupJob(m, app.DB)
	addMetricsGaugeUpdateJob(
		m,
		app.Config,
		app.DB,
		app.Registry.Names(),
		app.MetricsRecorder,
		app.MetricsCache,
	)
	addCacheCleanupJob(m, "Metrics cache", app.MetricsCacheCloser)
	addCacheCleanupJob(m, "Caller cache", app.CallerCacheCloser)
	addDatabaseCloseJob(m, app.DB)

	// Wait for graceful shutdown
	<-m.Done()
}
