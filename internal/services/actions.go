package services

import (
	"context"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
)

// ActionService proxies provider API calls on behalf of a connected user
type ActionService struct {
	connections  *ConnectionService
	client       *integrations.Client
	auditService *AuditService
}

func NewActionService(
	connections *ConnectionService,
	client *integrations.Client,
	auditService *AuditService,
) *ActionService {
	return &ActionService{
		connections:  connections,
		client:       client,
		auditService: auditService,
	}
}

// token resolves the caller's credential; no row means no upstream call
func (s *ActionService) token(ctx context.Context, userID, provider string) (*Credential, error) {
	return s.connections.Credential(ctx, userID, provider)
}

// Slack

func (s *ActionService) SlackChannels(ctx context.Context, userID string) ([]integrations.Channel, error) {
	cred, err := s.token(ctx, userID, models.ProviderSlack)
	if err != nil {
		return nil, err
	}
	return s.client.ListChannels(ctx, cred.Token)
}

// PostSlackMessage posts as the connected user to channel, or to the
// selected channel when channel is empty
func (s *ActionService) PostSlackMessage(
	ctx context.Context,
	userID, channel, text string,
) (*integrations.SlackMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	cred, err := s.token(ctx, userID, models.ProviderSlack)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		channel = cred.Row.MetadataValue(models.MetaSelectedChannelID)
	}
	if channel == "" {
		return nil, ErrNoChannel
	}

	msg, err := s.client.PostMessage(ctx, cred.Token, channel, text)
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventNotificationSent,
		ActorUserID:  userID,
		Provider:     models.ProviderSlack,
		Action:       "Slack message posted",
		Details:      models.AuditDetails{"channel_id": channel},
		Success:      err == nil,
		ErrorMessage: errorMessage(err),
	})
	return msg, err
}

// Trello

func (s *ActionService) TrelloBoards(ctx context.Context, userID string) ([]integrations.Board, error) {
	cred, err := s.token(ctx, userID, models.ProviderTrello)
	if err != nil {
		return nil, err
	}
	return s.client.ListBoards(ctx, cred.Token)
}

func (s *ActionService) TrelloLists(
	ctx context.Context,
	userID, boardID string,
) ([]integrations.List, error) {
	cred, err := s.token(ctx, userID, models.ProviderTrello)
	if err != nil {
		return nil, err
	}
	return s.client.ListLists(ctx, cred.Token, boardID)
}

func (s *ActionService) CreateTrelloCard(
	ctx context.Context,
	userID string,
	in integrations.CardInput,
) (*integrations.Card, error) {
	cred, err := s.token(ctx, userID, models.ProviderTrello)
	if err != nil {
		return nil, err
	}
	return s.client.CreateCard(ctx, cred.Token, in)
}

// Asana

func (s *ActionService) AsanaWorkspaces(ctx context.Context, userID string) ([]integrations.Workspace, error) {
	cred, err := s.token(ctx, userID, models.ProviderAsana)
	if err != nil {
		return nil, err
	}
	return s.client.ListWorkspaces(ctx, cred.Token)
}

func (s *ActionService) AsanaProjects(
	ctx context.Context,
	userID, workspaceID string,
) ([]integrations.Project, error) {
	cred, err := s.token(ctx, userID, models.ProviderAsana)
	if err != nil {
		return nil, err
	}
	return s.client.ListProjects(ctx, cred.Token, workspaceID)
}

func (s *ActionService) CreateAsanaTask(
	ctx context.Context,
	userID string,
	in integrations.TaskInput,
) (*integrations.Task, error) {
	cred, err := s.token(ctx, userID, models.ProviderAsana)
	if err != nil {
		return nil, err
	}
	return s.client.CreateTask(ctx, cred.Token, in)
}

// Monday

func (s *ActionService) MondayBoards(ctx context.Context, userID string) ([]integrations.MondayBoard, error) {
	cred, err := s.token(ctx, userID, models.ProviderMonday)
	if err != nil {
		return nil, err
	}
	return s.client.ListMondayBoards(ctx, cred.Token)
}

func (s *ActionService) CreateMondayItem(
	ctx context.Context,
	userID string,
	in integrations.ItemInput,
) (*integrations.MondayItem, error) {
	cred, err := s.token(ctx, userID, models.ProviderMonday)
	if err != nil {
		return nil, err
	}
	return s.client.CreateMondayItem(ctx, cred.Token, in)
}

// Google Calendar and Zoom refresh expired tokens inside Credential

func (s *ActionService) GoogleEvents(
	ctx context.Context,
	userID string,
	query integrations.EventQuery,
) ([]integrations.Event, error) {
	cred, err := s.token(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	return s.client.ListEvents(ctx, cred.Token, query)
}

func (s *ActionService) ZoomMeetings(
	ctx context.Context,
	userID, meetingType string,
) ([]integrations.Meeting, error) {
	cred, err := s.token(ctx, userID, models.ProviderZoom)
	if err != nil {
		return nil, err
	}
	return s.client.ListMeetings(ctx, cred.Token, meetingType)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
