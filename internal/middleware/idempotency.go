package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/One-johnson/sheepshep-sub001/internal/shared/apperror"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	idempotencyResponseKey = "idempotency_response"
	idempotencyLockTTL     = 30 * time.Second
	idempotencyResultTTL   = 24 * time.Hour
)

// storedResult is what a finished request leaves behind for replays.
type storedResult struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

// Idempotency replays the stored result of a POST that carried the same
// Idempotency-Key for the same actor, and rejects a duplicate that arrives
// while the first one is still running.
func Idempotency(rdb *redis.Client, logger ...*zap.Logger) gin.HandlerFunc {
	l := zap.L().Named("middleware.idempotency")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("middleware.idempotency")
	}

	return func(c *gin.Context) {
		idempKey := c.GetHeader(IdempotencyHeader)
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		actorID := ""
		if actor, ok := ActorFromContext(c); ok {
			actorID = actor.ID.String()
		}
		ctx := c.Request.Context()
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), actorID, idempKey)
		lockKey := cacheKey + ":lock"

		if val, err := rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached storedResult
			if err := json.Unmarshal(val, &cached); err == nil {
				status := cached.Status
				if status == 0 {
					status = http.StatusOK
				}
				response.Success(c, status, cached.Data, nil)
				c.Abort()
				return
			}
		}

		acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
		if err != nil {
			l.Warn("idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Abort(c, http.StatusConflict, apperror.CodeConflict, "request with this idempotency key is still processing")
			return
		}

		c.Next()

		if result, ok := c.Get(idempotencyResponseKey); ok && c.Writer.Status() < http.StatusMultipleChoices {
			if payload, err := json.Marshal(storedResult{Status: c.Writer.Status(), Data: result}); err == nil {
				if err := rdb.Set(ctx, cacheKey, payload, idempotencyResultTTL).Err(); err != nil {
					l.Warn("idempotency result not stored", zap.Error(err))
				}
			}
		}
		if err := rdb.Del(ctx, lockKey).Err(); err != nil {
			l.Warn("idempotency lock not released", zap.Error(err))
		}
	}
}

// RememberResponse marks data as the replayable result of the current request.
func RememberResponse(c *gin.Context, data any) {
	c.Set(idempotencyResponseKey, data)
}
