package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/VatsalPandya47/taskmind/internal/cache"
	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/metrics"
	"github.com/VatsalPandya47/taskmind/internal/models"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// newCache builds a memory or Redis cache for T depending on CACHE_TYPE
func newCache[T any](
	ctx context.Context,
	cfg *config.Config,
	name, keyPrefix string,
) (core.Cache[T], error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.CacheType {
	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			keyPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis %s: %w", name, err)
		}
		log.Printf("%s: redis (addr=%s, db=%d)", name, cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default: // memory
		log.Printf("%s: memory (single instance only)", name)
		return cache.NewMemoryCache[T](), nil
	}
}

// initializeMetricsCache initializes the gauge cache. Nothing is created
// when gauge updates are off.
func initializeMetricsCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return nil, nil, nil
	}

	c, err := newCache[int64](ctx, cfg, "Metrics cache", "taskmind:metrics:")
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// initializeCallerCache initializes the cache of verified bearer tokens.
// Nothing is created when AUTH_CACHE_TTL is zero.
func initializeCallerCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[models.Caller], func() error, error) {
	if cfg.AuthCacheTTL <= 0 {
		log.Println("Caller cache: disabled")
		return nil, nil, nil
	}

	c, err := newCache[models.Caller](ctx, cfg, "Caller cache", "taskmind:callers:")
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}
