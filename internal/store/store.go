package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// New opens the database, applies migrations and returns a ready Store
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// A single connection keeps :memory: databases coherent and
		// serialises writers the way SQLite expects.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.ProviderToken{},
		&models.OAuthState{},
		&models.Summary{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound maps gorm's sentinel onto the store's
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// Provider token operations

// UpsertProviderToken inserts the token or overwrites the existing row for
// the same (user_id, provider) pair, then returns the stored row.
func (s *Store) UpsertProviderToken(
	ctx context.Context,
	token *models.ProviderToken,
) (*models.ProviderToken, error) {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"token_type",
			"scopes",
			"expires_at",
			"external_account_id",
			"external_account_name",
			"metadata",
			"updated_at",
		}),
	}).Create(token).Error
	if err != nil {
		return nil, err
	}

	return s.GetProviderToken(ctx, token.UserID, token.Provider)
}

// GetProviderToken returns the caller's token for provider
func (s *Store) GetProviderToken(
	ctx context.Context,
	userID, provider string,
) (*models.ProviderToken, error) {
	var token models.ProviderToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&token).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

// ListProviderTokens returns every token the user holds
func (s *Store) ListProviderTokens(
	ctx context.Context,
	userID string,
) ([]models.ProviderToken, error) {
	var tokens []models.ProviderToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider ASC").
		Find(&tokens).Error
	return tokens, err
}

// UpdateProviderTokenMetadata replaces the metadata of the user's token
func (s *Store) UpdateProviderTokenMetadata(
	ctx context.Context,
	userID, provider string,
	metadata models.TokenMetadata,
) error {
	result := s.db.WithContext(ctx).
		Model(&models.ProviderToken{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]any{
			"metadata":   metadata,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateProviderTokenCredentials stores refreshed credentials for an existing row
func (s *Store) UpdateProviderTokenCredentials(
	ctx context.Context,
	token *models.ProviderToken,
) error {
	return s.db.WithContext(ctx).
		Model(&models.ProviderToken{}).
		Where("id = ?", token.ID).
		Updates(map[string]any{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"expires_at":    token.ExpiresAt,
			"updated_at":    time.Now(),
		}).Error
}

// TouchProviderToken records that the token was used for an upstream call
func (s *Store) TouchProviderToken(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.ProviderToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", time.Now()).Error
}

// DeleteProviderTokens deletes the user's rows for provider and reports how many went
func (s *Store) DeleteProviderTokens(
	ctx context.Context,
	userID, provider string,
) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.ProviderToken{})
	return result.RowsAffected, result.Error
}

// CountProviderTokens returns the number of users connected to provider
func (s *Store) CountProviderTokens(ctx context.Context, provider string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ProviderToken{}).
		Where("provider = ?", provider).
		Count(&count).Error
	return count, err
}

// OAuth state operations

// CreateOAuthState persists a pending authorization attempt
func (s *Store) CreateOAuthState(ctx context.Context, state *models.OAuthState) error {
	return s.db.WithContext(ctx).Create(state).Error
}

// ConsumeOAuthState atomically removes and returns the state row.
// Expired rows are still returned so the caller can redirect with an error;
// a row deleted by a concurrent request yields ErrStateAlreadyUsed.
func (s *Store) ConsumeOAuthState(ctx context.Context, value string) (*models.OAuthState, error) {
	var state models.OAuthState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state = ?", value).First(&state).Error; err != nil {
			return notFound(err)
		}

		result := tx.Where("state = ?", value).Delete(&models.OAuthState{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteExpiredOAuthStates purges abandoned authorization attempts
func (s *Store) DeleteExpiredOAuthStates(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.OAuthState{})
	return result.RowsAffected, result.Error
}

// Summary operations

// CreateSummary stores a summary produced by the summarization function
func (s *Store) CreateSummary(ctx context.Context, summary *models.Summary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(summary).Error
}

// GetSummary returns the summary only when it belongs to userID
func (s *Store) GetSummary(ctx context.Context, userID, id string) (*models.Summary, error) {
	var summary models.Summary
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&summary).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &summary, nil
}

// ListSummaries returns the user's summaries, newest first
func (s *Store) ListSummaries(
	ctx context.Context,
	userID string,
	params PaginationParams,
) ([]models.Summary, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Summary{}).Where("user_id = ?", userID)
	if params.Search != "" {
		query = query.Where("meeting_title LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var summaries []models.Summary
	offset := (params.Page - 1) * params.PageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&summaries).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return summaries, CalculatePagination(total, params.Page, params.PageSize), nil
}

// Audit log operations

// CreateAuditLog writes a single audit entry
func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

// CreateAuditLogBatch writes entries in one statement
func (s *Store) CreateAuditLogBatch(ctx context.Context, logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// ListAuditLogs returns audit entries matching filters, newest first
func (s *Store) ListAuditLogs(
	ctx context.Context,
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.ActorUserID != "" {
		query = query.Where("actor_user_id = ?", filters.ActorUserID)
	}
	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.Provider != "" {
		query = query.Where("provider = ?", filters.Provider)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.AuditLog
	offset := (params.Page - 1) * params.PageSize
	if err := query.Order("event_time DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

// DeleteOldAuditLogs removes entries created before cutoff
func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}
