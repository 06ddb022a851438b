package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Integration lifecycle
	AuthorizeTotal       *prometheus.CounterVec
	OAuthCallbackTotal   *prometheus.CounterVec
	TokenRefreshTotal    *prometheus.CounterVec
	DisconnectTotal      *prometheus.CounterVec
	IntegrationsActive   *prometheus.GaugeVec
	UpstreamRequests     *prometheus.CounterVec
	UpstreamDuration     *prometheus.HistogramVec
	CallerVerifications  *prometheus.CounterVec
	CallerVerifyDuration *prometheus.HistogramVec

	// Actions
	NotificationsTotal *prometheus.CounterVec
	SummarySyncItems   *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns the Prometheus-backed recorder when enabled, NoopMetrics otherwise.
// Prometheus collectors are registered only once per process.
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthorizeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integration_authorize_total",
				Help: "Total number of authorization URLs issued",
			},
			[]string{"provider", "result"},
		),
		OAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integration_oauth_callback_total",
				Help: "Total number of OAuth callbacks handled",
			},
			// result: success, provider_error, security_error, token_exchange_failed, database_error
			[]string{"provider", "result"},
		),
		TokenRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integration_token_refresh_total",
				Help: "Total number of provider token refresh attempts",
			},
			[]string{"provider", "result"},
		),
		DisconnectTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integration_disconnect_total",
				Help: "Total number of integrations disconnected",
			},
			[]string{"provider"},
		),
		IntegrationsActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "integrations_connected",
				Help: "Current number of users connected per provider",
			},
			[]string{"provider"},
		),
		UpstreamRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Total number of calls made to provider APIs",
			},
			[]string{"provider", "operation", "status"},
		),
		UpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Latency of provider API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		CallerVerifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caller_verification_total",
				Help: "Total number of bearer token verifications",
			},
			[]string{"mode", "result"}, // result: valid, invalid, error
		),
		CallerVerifyDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "caller_verification_duration_seconds",
				Help:    "Time taken to verify bearer tokens",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		NotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slack_notifications_total",
				Help: "Total number of bot notifications posted to Slack",
			},
			[]string{"result"},
		),
		SummarySyncItems: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summary_sync_items_total",
				Help: "Action items pushed to providers from summaries",
			},
			[]string{"provider", "result"},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}
}

func resultLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordAuthorizeStarted records an authorization URL request
func (m *Metrics) RecordAuthorizeStarted(provider string, success bool) {
	m.AuthorizeTotal.WithLabelValues(provider, resultLabel(success)).Inc()
}

// RecordOAuthCallback records the outcome of a provider callback
func (m *Metrics) RecordOAuthCallback(provider, result string) {
	m.OAuthCallbackTotal.WithLabelValues(provider, result).Inc()
}

// RecordTokenRefresh records a provider token refresh attempt
func (m *Metrics) RecordTokenRefresh(provider string, success bool) {
	m.TokenRefreshTotal.WithLabelValues(provider, resultLabel(success)).Inc()
}

// RecordDisconnect records a removed integration
func (m *Metrics) RecordDisconnect(provider string) {
	m.DisconnectTotal.WithLabelValues(provider).Inc()
}

// RecordUpstreamCall records a provider API call. status 0 means a transport error.
func (m *Metrics) RecordUpstreamCall(
	provider, operation string,
	status int,
	duration time.Duration,
) {
	m.UpstreamRequests.WithLabelValues(provider, operation, strconv.Itoa(status)).Inc()
	m.UpstreamDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordCallerVerification records a bearer token verification
func (m *Metrics) RecordCallerVerification(mode, result string, duration time.Duration) {
	m.CallerVerifications.WithLabelValues(mode, result).Inc()
	m.CallerVerifyDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordNotification records a bot notification
func (m *Metrics) RecordNotification(success bool) {
	m.NotificationsTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordSummarySync records the per-item outcome of a summary sync
func (m *Metrics) RecordSummarySync(provider string, pushed, failed int) {
	m.SummarySyncItems.WithLabelValues(provider, resultSuccess).Add(float64(pushed))
	m.SummarySyncItems.WithLabelValues(provider, resultError).Add(float64(failed))
}

// SetConnectedIntegrations sets the connected-users gauge (for periodic updates)
func (m *Metrics) SetConnectedIntegrations(provider string, count int64) {
	m.IntegrationsActive.WithLabelValues(provider).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
