package metrics

import (
	"context"
	"log"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"
)

// CacheWrapper provides a read-through cache for gauge values.
// Several replicas sharing a Redis cache only hit the database once per TTL.
type CacheWrapper struct {
	store core.MetricsStore
	cache core.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.MetricsStore, cache core.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetConnectedCount returns the number of users connected to provider.
func (m *CacheWrapper) GetConnectedCount(
	ctx context.Context,
	provider string,
	ttl time.Duration,
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		"integrations:"+provider,
		ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return m.store.CountProviderTokens(ctx, provider)
		},
	)
}

// UpdateGauges refreshes the connected-integrations gauge for every provider.
// A failing provider is logged and skipped so the others still update.
func UpdateGauges(
	ctx context.Context,
	recorder core.Recorder,
	wrapper *CacheWrapper,
	providers []string,
	ttl time.Duration,
) {
	for _, provider := range providers {
		count, err := wrapper.GetConnectedCount(ctx, provider, ttl)
		if err != nil {
			log.Printf("[Metrics] Failed to count %s integrations: %v", provider, err)
			recorder.RecordDatabaseQueryError("count_" + provider + "_tokens")
			continue
		}
		recorder.SetConnectedIntegrations(provider, count)
	}
}
