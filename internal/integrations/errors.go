package integrations

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned before any upstream call when required fields are missing
var ErrInvalidInput = errors.New("invalid input")

// UpstreamError is a failed provider call. Status is 0 when no response arrived;
// Code carries provider-level error strings such as Slack's "channel_not_found".
type UpstreamError struct {
	Provider  string
	Operation string
	Status    int
	Code      string
	Body      string
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Code)
	case e.Status == 0:
		return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Body)
	default:
		return fmt.Sprintf("%s %s failed with status %d", e.Provider, e.Operation, e.Status)
	}
}

// IsUnauthorized reports whether the provider rejected the credential
func (e *UpstreamError) IsUnauthorized() bool {
	return e.Status == 401 || e.Code == "invalid_auth" || e.Code == "token_revoked"
}
