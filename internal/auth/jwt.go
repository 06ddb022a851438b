package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// callerClaims are the claims the hosted identity platform puts in session JWTs
type callerClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 session tokens locally with the shared project secret
type JWTVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewJWTVerifier creates a verifier. Empty issuer or audience disables that check.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), opts: opts}
}

// Verify parses tokenString and returns the caller named by its subject
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.Caller, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	var claims callerClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	caller := &models.Caller{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		caller.ExpiresAt = claims.ExpiresAt.Time
	}
	return caller, nil
}

// tokenExpiry reads the exp claim without verifying the signature.
// Tokens that are not JWTs or carry no exp yield the zero time.
func tokenExpiry(tokenString string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Name returns verifier name for logging and metrics
func (v *JWTVerifier) Name() string {
	return "jwt"
}
