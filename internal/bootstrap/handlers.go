package bootstrap

import (
	"github.com/VatsalPandya47/taskmind/internal/handlers"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	integrations *handlers.IntegrationHandler
	proxy        *handlers.ProxyHandler
	summaries    *handlers.SummaryHandler
	notify       *handlers.NotifyHandler
	audit        *handlers.AuditHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(s serviceSet) handlerSet {
	return handlerSet{
		integrations: handlers.NewIntegrationHandler(s.connections),
		proxy:        handlers.NewProxyHandler(s.actions),
		summaries:    handlers.NewSummaryHandler(s.summaries),
		notify:       handlers.NewNotifyHandler(s.notify),
		audit:        handlers.NewAuditHandler(s.audit),
	}
}
