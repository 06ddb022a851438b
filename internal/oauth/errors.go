package oauth

import "errors"

var (
	// ErrNotConfigured is returned when a provider lacks client credentials
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrUnsupportedFlow is returned for operations a provider's flow does not offer
	// (e.g. code exchange for Trello, refresh for Slack)
	ErrUnsupportedFlow = errors.New("operation not supported by provider flow")

	// ErrExchangeFailed wraps every token endpoint failure
	ErrExchangeFailed = errors.New("token exchange failed")
)
