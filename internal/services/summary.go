package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/integrations"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/store"
)

// SummaryInput is a summary delivered by the summarization function
type SummaryInput struct {
	UserID       string
	MeetingTitle string
	MeetingDate  *time.Time
	Summary      string
	ActionItems  models.ActionItems
}

// SyncTarget names where action items land for each provider
type SyncTarget struct {
	ListID      string `json:"list_id,omitempty"`      // Trello
	WorkspaceID string `json:"workspace_id,omitempty"` // Asana
	ProjectID   string `json:"project_id,omitempty"`   // Asana, optional
	BoardID     string `json:"board_id,omitempty"`     // Monday
	GroupID     string `json:"group_id,omitempty"`     // Monday, optional
	ChannelID   string `json:"channel_id,omitempty"`   // Slack, defaults to the selected channel
}

// SyncedItem is one action item created upstream
type SyncedItem struct {
	Text       string `json:"text"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url,omitempty"`
}

// SyncResult reports how far a sync got
type SyncResult struct {
	Provider string       `json:"provider"`
	Total    int          `json:"total"`
	Created  int          `json:"created"`
	Items    []SyncedItem `json:"items"`
}

// SummaryService stores summaries and pushes their action items to connected tools
type SummaryService struct {
	store        *store.Store
	actions      *ActionService
	auditService *AuditService
	metrics      core.Recorder
}

func NewSummaryService(
	s *store.Store,
	actions *ActionService,
	auditService *AuditService,
	m core.Recorder,
) *SummaryService {
	return &SummaryService{
		store:        s,
		actions:      actions,
		auditService: auditService,
		metrics:      m,
	}
}

// Ingest stores a summary for any user
func (s *SummaryService) Ingest(ctx context.Context, in SummaryInput) (*models.Summary, error) {
	if in.UserID == "" || strings.TrimSpace(in.MeetingTitle) == "" {
		return nil, ErrInvalidSummary
	}
	for _, item := range in.ActionItems {
		if strings.TrimSpace(item.Text) == "" {
			return nil, ErrInvalidSummary
		}
	}

	summary := &models.Summary{
		UserID:       in.UserID,
		MeetingTitle: strings.TrimSpace(in.MeetingTitle),
		MeetingDate:  in.MeetingDate,
		Summary:      in.Summary,
		ActionItems:  in.ActionItems,
	}
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		s.metrics.RecordDatabaseQueryError("create_summary")
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventSummaryIngested,
		ActorUserID: in.UserID,
		Action:      "Summary stored",
		Details: models.AuditDetails{
			"summary_id":   summary.ID,
			"action_items": len(summary.ActionItems),
		},
		Success: true,
	})
	return summary, nil
}

// List returns the user's summaries, newest first
func (s *SummaryService) List(
	ctx context.Context,
	userID string,
	params store.PaginationParams,
) ([]models.Summary, store.PaginationResult, error) {
	summaries, page, err := s.store.ListSummaries(ctx, userID, params)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_summaries")
		return nil, page, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return summaries, page, nil
}

// Get returns a summary owned by userID
func (s *SummaryService) Get(ctx context.Context, userID, id string) (*models.Summary, error) {
	summary, err := s.store.GetSummary(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return summary, nil
}

// Sync pushes every action item of a summary to provider, sequentially.
// The first upstream failure stops the sync; the partial result is
// returned alongside the error.
func (s *SummaryService) Sync(
	ctx context.Context,
	userID, summaryID, provider string,
	target SyncTarget,
) (*SyncResult, error) {
	summary, err := s.Get(ctx, userID, summaryID)
	if err != nil {
		return nil, err
	}
	if len(summary.ActionItems) == 0 {
		return nil, ErrNoActionItems
	}

	push, err := s.pusher(provider, target)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Provider: provider,
		Total:    len(summary.ActionItems),
		Items:    []SyncedItem{},
	}
	if provider == models.ProviderSlack {
		// One message carries every item
		result.Total = 1
	}

	syncErr := push(ctx, userID, summary, result)

	s.metrics.RecordSummarySync(provider, result.Created, result.Total-result.Created)
	if syncErr != nil {
		log.Printf("[Summary] Sync of %s to %s stopped after %d/%d: %v",
			summaryID, provider, result.Created, result.Total, syncErr)
	}
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:   models.EventSummarySynced,
		ActorUserID: userID,
		Provider:    provider,
		Action:      "Summary action items synced",
		Details: models.AuditDetails{
			"summary_id": summaryID,
			"created":    result.Created,
			"total":      result.Total,
		},
		Success:      syncErr == nil,
		ErrorMessage: errorMessage(syncErr),
	})
	return result, syncErr
}

type pushFunc func(ctx context.Context, userID string, summary *models.Summary, result *SyncResult) error

// pusher validates the target for provider and returns the push strategy
func (s *SummaryService) pusher(provider string, target SyncTarget) (pushFunc, error) {
	switch provider {
	case models.ProviderTrello:
		if target.ListID == "" {
			return nil, fmt.Errorf("%w: list_id is required", ErrInvalidSyncTarget)
		}
		return s.pushTrello(target), nil
	case models.ProviderAsana:
		if target.WorkspaceID == "" {
			return nil, fmt.Errorf("%w: workspace_id is required", ErrInvalidSyncTarget)
		}
		return s.pushAsana(target), nil
	case models.ProviderMonday:
		if target.BoardID == "" {
			return nil, fmt.Errorf("%w: board_id is required", ErrInvalidSyncTarget)
		}
		return s.pushMonday(target), nil
	case models.ProviderSlack:
		return s.pushSlack(target), nil
	}
	return nil, fmt.Errorf("%w: %s does not accept action items", ErrInvalidSyncTarget, provider)
}

func (s *SummaryService) pushTrello(target SyncTarget) pushFunc {
	return func(ctx context.Context, userID string, summary *models.Summary, result *SyncResult) error {
		for _, item := range summary.ActionItems {
			card, err := s.actions.CreateTrelloCard(ctx, userID, integrations.CardInput{
				ListID: target.ListID,
				Name:   item.Text,
				Desc:   itemNotes(summary, item),
				Due:    item.DueDate,
			})
			if err != nil {
				return err
			}
			result.Created++
			result.Items = append(result.Items, SyncedItem{Text: item.Text, ExternalID: card.ID, URL: card.ShortURL})
		}
		return nil
	}
}

func (s *SummaryService) pushAsana(target SyncTarget) pushFunc {
	return func(ctx context.Context, userID string, summary *models.Summary, result *SyncResult) error {
		for _, item := range summary.ActionItems {
			task, err := s.actions.CreateAsanaTask(ctx, userID, integrations.TaskInput{
				WorkspaceID: target.WorkspaceID,
				ProjectID:   target.ProjectID,
				Name:        item.Text,
				Notes:       itemNotes(summary, item),
				DueOn:       item.DueDate,
			})
			if err != nil {
				return err
			}
			result.Created++
			result.Items = append(result.Items, SyncedItem{Text: item.Text, ExternalID: task.GID, URL: task.PermalinkURL})
		}
		return nil
	}
}

func (s *SummaryService) pushMonday(target SyncTarget) pushFunc {
	return func(ctx context.Context, userID string, summary *models.Summary, result *SyncResult) error {
		for _, item := range summary.ActionItems {
			created, err := s.actions.CreateMondayItem(ctx, userID, integrations.ItemInput{
				BoardID: target.BoardID,
				GroupID: target.GroupID,
				Name:    item.Text,
			})
			if err != nil {
				return err
			}
			result.Created++
			result.Items = append(result.Items, SyncedItem{Text: item.Text, ExternalID: created.ID})
		}
		return nil
	}
}

func (s *SummaryService) pushSlack(target SyncTarget) pushFunc {
	return func(ctx context.Context, userID string, summary *models.Summary, result *SyncResult) error {
		msg, err := s.actions.PostSlackMessage(ctx, userID, target.ChannelID, slackDigest(summary))
		if err != nil {
			return err
		}
		result.Created = 1
		result.Items = append(result.Items, SyncedItem{Text: summary.MeetingTitle, ExternalID: msg.TS})
		return nil
	}
}

// itemNotes links an action item back to its meeting
func itemNotes(summary *models.Summary, item models.ActionItem) string {
	var b strings.Builder
	b.WriteString("From meeting: " + summary.MeetingTitle)
	if summary.MeetingDate != nil {
		b.WriteString(" (" + summary.MeetingDate.Format("2006-01-02") + ")")
	}
	if item.Assignee != "" {
		b.WriteString("\nAssignee: " + item.Assignee)
	}
	return b.String()
}

// slackDigest renders every action item as one Slack mrkdwn message
func slackDigest(summary *models.Summary) string {
	var b strings.Builder
	b.WriteString("*Action items from " + summary.MeetingTitle + "*\n")
	for _, item := range summary.ActionItems {
		b.WriteString("• " + item.Text)
		if item.Assignee != "" {
			b.WriteString(" (" + item.Assignee + ")")
		}
		if item.DueDate != "" {
			b.WriteString(" due " + item.DueDate)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
