package models

import "time"

// Caller is the authenticated end user behind a request.
// Identity is owned by the hosted platform; only the subject is referenced locally.
type Caller struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	// ExpiresAt is the bearer token's exp claim; zero when unknown
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the token the caller was resolved from has expired
func (c *Caller) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && !time.Now().Before(c.ExpiresAt)
}
