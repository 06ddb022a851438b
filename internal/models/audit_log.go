package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Integration lifecycle events
	EventIntegrationAuthorizeStarted EventType = "INTEGRATION_AUTHORIZE_STARTED"
	EventIntegrationConnected        EventType = "INTEGRATION_CONNECTED"
	EventIntegrationConnectFailed    EventType = "INTEGRATION_CONNECT_FAILED"
	EventIntegrationDisconnected     EventType = "INTEGRATION_DISCONNECTED"
	EventIntegrationUpdated          EventType = "INTEGRATION_UPDATED"
	EventTokenRefreshed              EventType = "TOKEN_REFRESHED" //nolint:gosec // G101: event name, not a credential

	// Outbound actions
	EventNotificationSent EventType = "NOTIFICATION_SENT"
	EventSummarySynced    EventType = "SUMMARY_SYNCED"
	EventSummaryIngested  EventType = "SUMMARY_INGESTED"

	// Security events
	EventStateRejected     EventType = "OAUTH_STATE_REJECTED"
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal AuditDetails value: %w", err)
	}
	if raw == nil {
		*a = nil
		return nil
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Event information
	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Actor information
	ActorUserID string `gorm:"type:varchar(64);index" json:"actor_user_id"`
	ActorIP     string `gorm:"type:varchar(45);index" json:"actor_ip"` // Support IPv6

	// Integration the event concerns
	Provider string `gorm:"type:varchar(32);index" json:"provider,omitempty"`

	// Operation details
	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details,omitempty"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	// Request metadata
	UserAgent     string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	RequestPath   string `gorm:"type:varchar(500)" json:"request_path,omitempty"`
	RequestMethod string `gorm:"type:varchar(10)"  json:"request_method,omitempty"`

	// Timestamps (no UpdatedAt - immutable logs)
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}
