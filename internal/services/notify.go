package services

import (
	"context"
	"log"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
)

// NotifyService posts server-initiated Slack messages with the bot token
type NotifyService struct {
	client         *integrations.Client
	botToken       string
	defaultChannel string
	auditService   *AuditService
	metrics        core.Recorder
}

func NewNotifyService(
	client *integrations.Client,
	botToken, defaultChannel string,
	auditService *AuditService,
	m core.Recorder,
) *NotifyService {
	return &NotifyService{
		client:         client,
		botToken:       botToken,
		defaultChannel: defaultChannel,
		auditService:   auditService,
		metrics:        m,
	}
}

// NotifySlack posts message to channel, or to the configured default channel
func (s *NotifyService) NotifySlack(
	ctx context.Context,
	message, channel string,
) (*integrations.SlackMessage, error) {
	if s.botToken == "" {
		log.Println("[Slack] Notify rejected: SLACK_BOT_TOKEN is not set")
		return nil, ErrSlackBotNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if channel == "" {
		channel = s.defaultChannel
	}
	if channel == "" {
		log.Println("[Slack] Notify rejected: no channel and SLACK_DEFAULT_CHANNEL_ID is not set")
		return nil, ErrNoDefaultChannel
	}

	msg, err := s.client.PostMessage(ctx, s.botToken, channel, message)
	s.metrics.RecordNotification(err == nil)
	if err != nil {
		log.Printf("[Slack] Notify to %s failed: %v", channel, err)
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventNotificationSent,
		Provider:     models.ProviderSlack,
		Action:       "Bot notification sent",
		Details:      models.AuditDetails{"channel_id": channel},
		Success:      err == nil,
		ErrorMessage: errorMessage(err),
	})
	return msg, err
}
