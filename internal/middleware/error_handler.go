package middleware

import (
	"context"
	"encoding/json"
	"time"

	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// ErrorHandler is the global error handler. Server errors are appended to the
// capped Redis list read by /health/errors when rdb is set.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusOf(err)
		if code >= fiber.StatusInternalServerError {
			log.Ctx(c.UserContext()).Error().Err(err).Str("route", c.Route().Path).Msg("request failed")
			if rdb != nil {
				entry, _ := json.Marshal(map[string]interface{}{
					"time":     time.Now(),
					"trace_id": GetTraceID(c),
					"method":   c.Method(),
					"route":    c.Route().Path,
					"message":  err.Error(),
				})
				ctx := context.Background()
				rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
					p.LPush(ctx, KeyErrorLog, entry)
					p.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
					return nil
				})
			}
		}
		return response.FromError(c, err)
	}
}
