package middleware

import (
	"errors"
	"strings"
	"time"

	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouteLogger writes one line per request once it completes. Client errors
// log at warn and server errors at error; health checks and scrapes are skipped.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p := c.Path(); p == "/metrics" || strings.HasPrefix(p, "/health") {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// the error handler has not written the response yet
			status = statusOf(err)
		}
		l := zerolog.Ctx(c.UserContext())
		ev := l.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = l.Error()
		case status >= fiber.StatusBadRequest:
			ev = l.Warn()
		}
		if role := CurrentRole(c); role != "" {
			ev = ev.Str("role", role)
		}
		ev.Str("method", c.Method()).
			Str("route", c.Route().Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}

func statusOf(err error) int {
	var ae *apperr.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		return response.StatusFor(ae.Kind)
	case errors.As(err, &fe):
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
