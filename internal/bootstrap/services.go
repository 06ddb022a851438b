package bootstrap

import (
	"fmt"

	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/oauth"
	"github.com/VatsalPandya47/taskmind/internal/services"
	"github.com/VatsalPandya47/taskmind/internal/store"
	"github.com/VatsalPandya47/taskmind/internal/util"
)

// serviceSet holds all business services
type serviceSet struct {
	audit       *services.AuditService
	connections *services.ConnectionService
	actions     *services.ActionService
	summaries   *services.SummaryService
	notify      *services.NotifyService
}

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	registry *oauth.Registry,
	client *integrations.Client,
	recorder core.Recorder,
) (serviceSet, error) {
	sealer, err := util.NewSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return serviceSet{}, fmt.Errorf("failed to initialize token sealer: %w", err)
	}

	// Audit service (required by other services)
	audit := services.NewAuditService(db, cfg.EnableAuditLogging, cfg.AuditLogBufferSize)

	connections := services.NewConnectionService(
		db,
		registry,
		client,
		sealer,
		cfg,
		audit,
		recorder,
	)
	actions := services.NewActionService(connections, client, audit)

	return serviceSet{
		audit:       audit,
		connections: connections,
		actions:     actions,
		summaries:   services.NewSummaryService(db, actions, audit, recorder),
		notify: services.NewNotifyService(
			client,
			cfg.SlackBotToken,
			cfg.SlackDefaultChannelID,
			audit,
			recorder,
		),
	}, nil
}
