package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrStateAlreadyUsed is returned by ConsumeOAuthState when a concurrent
	// request consumed the same state first (0 rows deleted).
	ErrStateAlreadyUsed = errors.New("oauth state already used")
)
