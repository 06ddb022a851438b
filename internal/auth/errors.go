package auth

import "errors"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired bearer token")

	// HTTP API errors
	ErrHTTPAPIConnection  = errors.New("failed to connect to identity API")
	ErrHTTPAPIInvalidResp = errors.New("invalid response from identity API")
)
