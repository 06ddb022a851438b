package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Provider identifiers. They double as route segments and table keys.
const (
	ProviderSlack  = "slack"
	ProviderTrello = "trello"
	ProviderAsana  = "asana"
	ProviderMonday = "monday"
	ProviderGoogle = "google"
	ProviderZoom   = "zoom"
)

// Well-known metadata keys
const (
	MetaTeamID              = "team_id"
	MetaTeamName            = "team_name"
	MetaBotUserID           = "bot_user_id"
	MetaSelectedChannelID   = "selected_channel_id"
	MetaSelectedChannelName = "selected_channel_name"
	MetaWorkspaceID         = "workspace_id"
	MetaAccountEmail        = "account_email"
)

// TokenMetadata holds provider-specific, non-secret connection details
type TokenMetadata map[string]string

// Value implements the driver.Valuer interface for database storage
func (m TokenMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil //nolint:nilnil // SQL NULL
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *TokenMetadata) Scan(value any) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal TokenMetadata value: %w", err)
	}
	if raw == nil {
		*m = nil
		return nil
	}

	result := make(TokenMetadata)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

// ProviderToken is a user's stored credential for one integration.
// AccessToken and RefreshToken hold sealed values, never plaintext.
type ProviderToken struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"                                  json:"id"`
	UserID   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_token_user_provider,priority:1" json:"user_id"`
	Provider string `gorm:"type:varchar(32);not null;uniqueIndex:idx_token_user_provider,priority:2;index" json:"provider"`

	AccessToken  string     `gorm:"type:text;not null" json:"-"`
	RefreshToken string     `gorm:"type:text"          json:"-"`
	TokenType    string     `gorm:"type:varchar(32)"   json:"token_type,omitempty"`
	Scopes       string     `gorm:"type:text"          json:"scopes,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	// Account on the provider side (Slack team, Asana workspace, Google email, ...)
	ExternalAccountID   string        `gorm:"type:varchar(128)" json:"external_account_id,omitempty"`
	ExternalAccountName string        `gorm:"type:varchar(255)" json:"external_account_name,omitempty"`
	Metadata            TokenMetadata `gorm:"type:json"         json:"metadata,omitempty"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides the table name used by ProviderToken
func (ProviderToken) TableName() string {
	return "provider_tokens"
}

// IsExpired reports whether the access token has passed its expiry.
// Tokens without an expiry never expire.
func (t *ProviderToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// MetadataValue returns a metadata entry or "" when absent
func (t *ProviderToken) MetadataValue(key string) string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata[key]
}

// jsonBytes normalises the driver representations of a JSON column
func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
