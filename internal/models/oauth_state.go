package models

import "time"

// OAuthState is one pending authorization attempt. It is consumed exactly once.
type OAuthState struct {
	State       string    `gorm:"primaryKey;type:varchar(64)"`
	UserID      string    `gorm:"type:varchar(64);not null;index"`
	Provider    string    `gorm:"type:varchar(32);not null"`
	ReturnURL   string    `gorm:"type:text;not null"`
	RedirectURI string    `gorm:"type:text;not null"` // Must be replayed byte-for-byte on exchange
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
}

// TableName overrides the table name used by OAuthState
func (OAuthState) TableName() string {
	return "oauth_states"
}

// IsExpired reports whether the state is past its validity window
func (s *OAuthState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
