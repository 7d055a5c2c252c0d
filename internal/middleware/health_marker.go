package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis keys behind /health/json. The reset handler clears all of them.
const (
	KeyReqTotal  = "health:api:req_total"
	KeyReqErrors = "health:api:req_errors"
	KeyResTime   = "health:api:res_time_total"
	KeyResCount  = "health:api:res_count"
	KeyStartTime = "health:api:start_time"
	KeyLastReq   = "health:api:last_request"
	KeyErrorLog  = "health:api:error_log"
)

// HealthKeys lists every counter key.
func HealthKeys() []string {
	return []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}
}

// HealthMarker counts API traffic in Redis. The last request is stored by
// route pattern, so reservation tokens in paths never reach Redis.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || !countable(c.Path()) {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		last, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"method": c.Method(),
			"route":  c.Route().Path,
		})
		failed := c.Response().StatusCode() >= fiber.StatusInternalServerError
		if err != nil {
			failed = statusOf(err) >= fiber.StatusInternalServerError
		}
		_, perr := rdb.Pipelined(context.Background(), func(p redis.Pipeliner) error {
			p.Set(context.Background(), KeyLastReq, last, 0)
			p.Incr(context.Background(), KeyReqTotal)
			p.Incr(context.Background(), KeyResCount)
			p.IncrByFloat(context.Background(), KeyResTime, float64(time.Since(start).Milliseconds()))
			if failed {
				p.Incr(context.Background(), KeyReqErrors)
			}
			return nil
		})
		if perr != nil {
			log.Warn().Err(perr).Msg("health counters not recorded")
		}
		return err
	}
}

func countable(path string) bool {
	return path != "/" && path != "/metrics" &&
		!strings.HasPrefix(path, "/health") && !strings.HasPrefix(path, "/favicon")
}
