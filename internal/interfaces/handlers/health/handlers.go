package health

import (
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"time"

	healthsvc "somosrentable-backend/internal/application/health"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers serves the operator endpoints outside /api/v1.
type Handlers struct {
	Checker  *healthsvc.Checker
	AdminKey string
}

func (h *Handlers) admin(c *fiber.Ctx) bool {
	key := c.Query("key")
	return h.AdminKey != "" && key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(h.AdminKey)) == 1
}

// Reset GET /reset?key=...: zero the traffic counters and restart the uptime clock.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.admin(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	rdb := h.Checker.Rdb
	_, err := rdb.TxPipelined(c.UserContext(), func(p redis.Pipeliner) error {
		p.Del(c.UserContext(), middleware.HealthKeys()...)
		p.Set(c.UserContext(), middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0)
		return nil
	})
	if err != nil {
		return err
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json. Answers 503 when Postgres or Redis is down so load
// balancers can act on the status code alone.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	rep := h.Checker.Collect(c.UserContext())
	code := fiber.StatusOK
	if rep.Status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(struct {
		Service string `json:"service"`
		healthsvc.Report
	}{"somosrentable-api", rep})
}

// Errors GET /health/errors?key=...: the latest server errors, newest first.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if !h.admin(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	entries, err := h.Checker.Rdb.LRange(c.UserContext(), middleware.KeyErrorLog, 0, -1).Result()
	if err != nil {
		return err
	}
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if json.Valid([]byte(e)) {
			out = append(out, json.RawMessage(e))
		}
	}
	return c.JSON(out)
}
