package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/cache"
	"github.com/VatsalPandya47/taskmind/internal/metrics"
	"github.com/VatsalPandya47/taskmind/internal/mocks"
	"github.com/VatsalPandya47/taskmind/internal/models"
	"github.com/VatsalPandya47/taskmind/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedVerifier_CachesSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCallerVerifier(ctrl)
	next.EXPECT().Name().Return("jwt").AnyTimes()
	next.EXPECT().
		Verify(gomock.Any(), "tok").
		Return(&models.Caller{UserID: "user-1"}, nil).
		Times(1)

	v := NewCachedVerifier(next, cache.NewMemoryCache[models.Caller](), time.Minute, metrics.NewNoopMetrics())

	for range 3 {
		caller, err := v.Verify(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "user-1", caller.UserID)
	}
}

func TestCachedVerifier_DoesNotCacheFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCallerVerifier(ctrl)
	next.EXPECT().Name().Return("http_api").AnyTimes()
	next.EXPECT().Verify(gomock.Any(), "tok").Return(nil, ErrInvalidToken).Times(2)

	v := NewCachedVerifier(next, cache.NewMemoryCache[models.Caller](), time.Minute, metrics.NewNoopMetrics())

	for range 2 {
		_, err := v.Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestCachedVerifier_KeysByTokenHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCallerVerifier(ctrl)
	next.EXPECT().Name().Return("jwt").AnyTimes()
	next.EXPECT().Verify(gomock.Any(), "a").Return(&models.Caller{UserID: "user-a"}, nil)
	next.EXPECT().Verify(gomock.Any(), "b").Return(&models.Caller{UserID: "user-b"}, nil)

	memCache := cache.NewMemoryCache[models.Caller]()
	v := NewCachedVerifier(next, memCache, time.Minute, metrics.NewNoopMetrics())

	a, err := v.Verify(context.Background(), "a")
	require.NoError(t, err)
	b, err := v.Verify(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "user-a", a.UserID)
	assert.Equal(t, "user-b", b.UserID)

	_, err = memCache.Get(context.Background(), "caller:a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "raw tokens must never be cache keys")
}

func TestCachedVerifier_ZeroTTLBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCallerVerifier(ctrl)
	next.EXPECT().Name().Return("jwt").AnyTimes()
	next.EXPECT().Verify(gomock.Any(), "tok").Return(nil, errors.New("platform down")).Times(1)

	v := NewCachedVerifier(next, cache.NewMemoryCache[models.Caller](), 0, metrics.NewNoopMetrics())
	_, err := v.Verify(context.Background(), "tok")
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestCachedVerifier_RespectsTokenExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	metricsRecorder := metrics.NewNoopMetrics()
	next := NewJWTVerifier(testSecret, "", "")

	claims := validClaims()
	claims["exp"] = time.Now().Add(2 * time.Second).Unix()
	signed := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claims)

	memCache := cache.NewMemoryCache[models.Caller]()
	v := NewCachedVerifier(next, memCache, time.Minute, metricsRecorder)

	caller, err := v.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", caller.UserID)
	assert.False(t, caller.ExpiresAt.IsZero())

	time.Sleep(3 * time.Second)

	_, err = v.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = memCache.Get(context.Background(), "caller:"+util.SHA256Hex(signed))
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "expired entries are evicted")

	// A cached caller whose token expired is rejected even when the inner
	// verifier is never consulted again.
	mockNext := mocks.NewMockCallerVerifier(ctrl)
	mockNext.EXPECT().Name().Return("http_api").AnyTimes()
	mockNext.EXPECT().
		Verify(gomock.Any(), "opaque").
		Return(&models.Caller{UserID: "user-2", ExpiresAt: time.Now().Add(-time.Second)}, nil).
		Times(1)
	v = NewCachedVerifier(mockNext, cache.NewMemoryCache[models.Caller](), time.Minute, metricsRecorder)
	_, err = v.Verify(context.Background(), "opaque")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
