package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionItem is one task extracted from a meeting
type ActionItem struct {
	Text     string `json:"text"               binding:"required"`
	Assignee string `json:"assignee,omitempty"`
	DueDate  string `json:"due_date,omitempty"` // YYYY-MM-DD
}

// ActionItems is stored as a JSON array
type ActionItems []ActionItem

// Value implements the driver.Valuer interface for database storage
func (a ActionItems) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]ActionItem{})
	}
	return json.Marshal([]ActionItem(a))
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *ActionItems) Scan(value any) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal ActionItems value: %w", err)
	}
	if raw == nil {
		*a = nil
		return nil
	}

	var items []ActionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*a = items
	return nil
}

// Summary is a meeting summary produced by the summarization function
type Summary struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)"        json:"id"`
	UserID       string      `gorm:"type:varchar(64);not null;index"    json:"user_id"`
	MeetingTitle string      `gorm:"type:varchar(255);not null"         json:"meeting_title"`
	MeetingDate  *time.Time  `json:"meeting_date,omitempty"`
	Summary      string      `gorm:"type:text"                          json:"summary"`
	ActionItems  ActionItems `gorm:"type:json"                          json:"action_items"`
	CreatedAt    time.Time   `gorm:"index"                              json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName overrides the table name used by Summary
func (Summary) TableName() string {
	return "summaries"
}
