package middleware

import (
	"context"
	"strings"

	"algojudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"
	userIDHeader    = "X-User-Id"
)

// TraceContextConfig controls which ids are taken from request headers.
type TraceContextConfig struct {
	AllowUserIDHeader bool
	WriteUserIDHeader bool
}

// TraceContextMiddleware puts trace, request and user ids on the request
// context and echoes them in response headers.
func TraceContextMiddleware() gin.HandlerFunc {
	return TraceContextMiddlewareWithConfig(TraceContextConfig{
		AllowUserIDHeader: true,
		WriteUserIDHeader: true,
	})
}

// TraceContextMiddlewareWithConfig is TraceContextMiddleware with cfg.
func TraceContextMiddlewareWithConfig(cfg TraceContextConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = bindID(ctx, c, traceIDHeader, contextkey.TraceID)
		ctx = bindID(ctx, c, requestIDHeader, contextkey.RequestID)
		if cfg.AllowUserIDHeader {
			if userID := strings.TrimSpace(c.GetHeader(userIDHeader)); userID != "" {
				c.Set(string(contextkey.UserID), userID)
				ctx = context.WithValue(ctx, contextkey.UserID, userID)
				if cfg.WriteUserIDHeader {
					c.Writer.Header().Set(userIDHeader, userID)
				}
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bindID reads header, generating a uuid when it is empty.
func bindID(ctx context.Context, c *gin.Context, header string, key contextkey.Key) context.Context {
	id := strings.TrimSpace(c.GetHeader(header))
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(string(key), id)
	c.Writer.Header().Set(header, id)
	return context.WithValue(ctx, key, id)
}
