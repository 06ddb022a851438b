package models

import (
	"context"

	"github.com/gin-gonic/gin"
)

type callerContextKey struct{}

// CallerContextKey is the gin context key RequireCaller stores the caller under
const CallerContextKey = "caller"

// SetCallerContext returns a copy of ctx carrying caller
func SetCallerContext(ctx context.Context, caller *Caller) context.Context {
	if caller == nil {
		return ctx
	}
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// GetCallerFromContext returns the caller stored by SetCallerContext or by the
// RequireCaller middleware on a gin context. Returns nil when unauthenticated.
func GetCallerFromContext(ctx context.Context) *Caller {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if v, exists := ginCtx.Get(CallerContextKey); exists {
			if caller, ok := v.(*Caller); ok {
				return caller
			}
		}
		if ginCtx.Request == nil {
			return nil
		}
		ctx = ginCtx.Request.Context()
	}

	if caller, ok := ctx.Value(callerContextKey{}).(*Caller); ok {
		return caller
	}
	return nil
}
