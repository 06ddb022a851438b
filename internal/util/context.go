package util

import (
	"context"

	"github.com/VatsalPandya47/taskmind/internal/models"

	"github.com/gin-gonic/gin"
)

type (
	ipContextKey          struct{}
	requestInfoContextKey struct{}
)

// RequestInfo is request metadata recorded alongside audit events
type RequestInfo struct {
	UserAgent string
	Path      string
	Method    string
}

// IPMiddleware extracts client IP and request metadata and stores them in the request context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		ip := c.ClientIP()
		c.Set("client_ip", ip)

		ctx := SetIPContext(c.Request.Context(), ip)
		ctx = context.WithValue(ctx, requestInfoContextKey{}, RequestInfo{
			UserAgent: c.Request.UserAgent(),
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestInfo returns the metadata stored by IPMiddleware
func GetRequestInfo(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoContextKey{}).(RequestInfo)
	return info
}

// SetIPContext stores the client IP in ctx. Empty values are not stored.
func SetIPContext(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipContextKey{}, ip)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	if ip, ok := ctx.Value(ipContextKey{}).(string); ok {
		return ip
	}

	return ""
}

// GetUserIDFromContext returns the verified caller's user id, if any
func GetUserIDFromContext(ctx context.Context) string {
	if caller := models.GetCallerFromContext(ctx); caller != nil {
		return caller.UserID
	}
	return ""
}
