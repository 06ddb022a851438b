package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/util"
)

var _ core.CallerVerifier = (*CachedVerifier)(nil)

// CachedVerifier memoises successful verifications so repeated requests with
// the same bearer token skip signature checks or platform round-trips.
// Only the SHA-256 of the token is used as cache key.
type CachedVerifier struct {
	next     core.CallerVerifier
	cache    core.Cache[models.Caller]
	ttl      time.Duration
	recorder core.Recorder
}

// NewCachedVerifier wraps next. A zero ttl disables caching.
func NewCachedVerifier(
	next core.CallerVerifier,
	cache core.Cache[models.Caller],
	ttl time.Duration,
	recorder core.Recorder,
) *CachedVerifier {
	return &CachedVerifier{next: next, cache: cache, ttl: ttl, recorder: recorder}
}

// Verify resolves the caller, consulting the cache first
func (v *CachedVerifier) Verify(ctx context.Context, token string) (*models.Caller, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	start := time.Now()
	if v.ttl <= 0 {
		caller, err := v.next.Verify(ctx, token)
		v.record(err, start)
		return caller, err
	}

	key := "caller:" + util.SHA256Hex(token)
	caller, err := v.cache.GetWithFetch(
		ctx,
		key,
		v.ttl,
		func(ctx context.Context, _ string) (models.Caller, error) {
			c, err := v.next.Verify(ctx, token)
			if err != nil {
				return models.Caller{}, err
			}
			return *c, nil
		},
	)
	if err == nil && caller.IsExpired() {
		// Entries outlive short-lived tokens when exp falls inside the TTL
		_ = v.cache.Delete(ctx, key)
		err = fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	v.record(err, start)
	if err != nil {
		return nil, err
	}
	return &caller, nil
}

func (v *CachedVerifier) record(err error, start time.Time) {
	result := "valid"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingToken):
		result = "invalid"
	default:
		result = "error"
	}
	v.recorder.RecordCallerVerification(v.next.Name(), result, time.Since(start))
}

// Name returns the wrapped verifier's name
func (v *CachedVerifier) Name() string {
	return v.next.Name()
}
