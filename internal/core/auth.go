package core

import (
	"context"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// CallerVerifier resolves a bearer token to the end user it was issued to.
// Implementations return auth.ErrInvalidToken for tokens that are malformed,
// expired or rejected, and any other error for infrastructure failures.
type CallerVerifier interface {
	Verify(ctx context.Context, token string) (*models.Caller, error)
	Name() string
}
