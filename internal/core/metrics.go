package core

import (
	"context"
	"time"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Connection lifecycle
	RecordAuthorizeStarted(provider string, success bool)
	RecordOAuthCallback(provider, result string)
	RecordTokenRefresh(provider string, success bool)
	RecordDisconnect(provider string)

	// Outbound provider calls
	RecordUpstreamCall(provider, operation string, status int, duration time.Duration)

	// Caller verification
	RecordCallerVerification(mode, result string, duration time.Duration)

	// Actions
	RecordNotification(success bool)
	RecordSummarySync(provider string, pushed, failed int)

	// Gauge setters (for periodic updates)
	SetConnectedIntegrations(provider string, count int64)

	// Database operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by CacheWrapper.
type MetricsStore interface {
	CountProviderTokens(ctx context.Context, provider string) (int64, error)
}
