package services

import "errors"

var (
	// Configuration errors
	ErrProviderNotConfigured = errors.New("provider is not configured")
	ErrSlackBotNotConfigured = errors.New("slack bot token is not configured")
	ErrNoDefaultChannel      = errors.New("no channel given and no default channel configured")

	// Client errors
	ErrUnsupportedProvider   = errors.New("unsupported provider")
	ErrMissingReturnURL      = errors.New("return_url is required")
	ErrInvalidReturnURL      = errors.New("return_url is not on an allowed origin")
	ErrNotConnected          = errors.New("integration is not connected")
	ErrInvalidState          = errors.New("invalid or expired authorization state")
	ErrMissingToken          = errors.New("token is required")
	ErrProviderTokenRejected = errors.New("provider rejected the token")
	ErrEmptyMessage          = errors.New("message is required")
	ErrNoChannel             = errors.New("no channel given and none selected")
	ErrInvalidSummary        = errors.New("user_id, meeting_title and action item text are required")
	ErrSummaryNotFound       = errors.New("summary not found")
	ErrNoActionItems         = errors.New("summary has no action items")
	ErrInvalidSyncTarget     = errors.New("invalid sync target")

	// Persistence errors
	ErrDatabase = errors.New("database error")
)
