package middleware

import (
	"github.com/One-johnson/sheepshep-sub001/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// ContextLogger assigns a request id and attaches a request-scoped logger to
// the standard context so services can read both without gin.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Header(requestIDHeader, rid)
		c.Set("request_id", rid)

		ctx := contextutil.WithRequestID(c.Request.Context(), rid)
		fields := []zap.Field{zap.String("request_id", rid)}
		if actor, ok := ActorFromContext(c); ok {
			fields = append(fields, zap.String("actor_id", actor.ID.String()))
		}
		ctx = contextutil.WithLogger(ctx, logger.With(fields...))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
