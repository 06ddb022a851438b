package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/VatsalPandya47/taskmind/internal/auth"
	"github.com/VatsalPandya47/taskmind/internal/core"
	"github.com/VatsalPandya47/taskmind/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireCaller is a middleware that requires a verified bearer token.
// The caller is stored on the gin context and on the request context so
// services see it through context.Context.
func RequireCaller(verifier core.CallerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "Bearer token required")
			return
		}

		caller, err := verifier.Verify(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
			abortUnauthorized(c, "Invalid or expired token")
			return
		default:
			log.Printf("[Auth] Caller verification via %s failed: %v", verifier.Name(), err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":             "service_unavailable",
				"error_description": "Unable to verify credentials, try again later",
			})
			return
		}

		c.Set(models.CallerContextKey, caller)
		c.Request = c.Request.WithContext(models.SetCallerContext(c.Request.Context(), caller))
		c.Next()
	}
}

// ServiceKeyAuth protects internal endpoints with the service-role key.
// The key is accepted as a bearer token or in the apikey header.
func ServiceKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			log.Println("[Auth] Internal endpoint called but SERVICE_ROLE_KEY is not set")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":             "configuration_error",
				"error_description": "Service key is not configured",
			})
			return
		}

		provided, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			provided = c.GetHeader("apikey")
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			abortUnauthorized(c, "Invalid service key")
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, description string) {
	c.Header("WWW-Authenticate", `Bearer realm="TaskMind"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
}
