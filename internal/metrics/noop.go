package metrics

import (
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder.
// Used when METRICS_ENABLED=false.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthorizeStarted(provider string, success bool) {}
func (n *NoopMetrics) RecordOAuthCallback(provider, result string)          {}
func (n *NoopMetrics) RecordTokenRefresh(provider string, success bool)     {}
func (n *NoopMetrics) RecordDisconnect(provider string)                     {}

func (n *NoopMetrics) RecordUpstreamCall(
	provider, operation string,
	status int,
	duration time.Duration,
) {
}

func (n *NoopMetrics) RecordCallerVerification(mode, result string, duration time.Duration) {}
func (n *NoopMetrics) RecordNotification(success bool)                                      {}
func (n *NoopMetrics) RecordSummarySync(provider string, pushed, failed int)                {}
func (n *NoopMetrics) SetConnectedIntegrations(provider string, count int64)                {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                            {}
