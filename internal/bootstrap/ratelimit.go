package bootstrap

import (
	"fmt"
	"log"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/middleware"
	"github.com/VatsalPandya47/taskmind/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimitMiddlewares holds rate limiting middlewares for different route groups
type rateLimitMiddlewares struct {
	api      gin.HandlerFunc
	callback gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration
// Accepts an optional go-redis client
func setupRateLimiting(
	cfg *config.Config,
	auditService *services.AuditService,
	redisClient *redis.Client,
) (rateLimitMiddlewares, error) {
	// Return no-op middlewares when rate limiting is disabled
	noOpMiddleware := func(c *gin.Context) { c.Next() }
	if !cfg.EnableRateLimit {
		log.Println("Rate limiting disabled")
		return rateLimitMiddlewares{api: noOpMiddleware, callback: noOpMiddleware}, nil
	}
	return createRateLimiters(cfg, auditService, redisClient)
}

// createRateLimiters creates one limiter per route group
func createRateLimiters(
	cfg *config.Config,
	auditService *services.AuditService,
	redisClient *redis.Client,
) (rateLimitMiddlewares, error) {
	log.Printf("Rate limiting enabled (store: %s)", cfg.RateLimitStore)

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	if storeType != middleware.RateLimitStoreRedis {
		log.Printf("In-memory rate limiting configured (single instance only)")
	}

	createLimiter := func(requestsPerMinute int, prefix string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient, // nil for memory store
			CleanupInterval:   cfg.RateLimitCleanupInterval,
			Prefix:            prefix,
			AuditService:      auditService,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s rate limiter: %w", prefix, err)
		}
		return limiter, nil
	}

	api, err := createLimiter(cfg.APIRateLimit, "api")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	callback, err := createLimiter(cfg.CallbackRateLimit, "callback")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	return rateLimitMiddlewares{api: api, callback: callback}, nil
}
