package middleware

import (
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDLocal  = "trace_id"
)

// Upstream ids (the lead feed, the web client) are reused when they look sane.
var inboundTraceID = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,64}$`)

// Tracing tags the request with a trace id, echoes it in X-Trace-Id and puts
// a logger carrying it on the user context, so services logging through
// log.Ctx(ctx) are correlated with the request line.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(traceIDHeader)
		if !inboundTraceID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Locals(traceIDLocal, id)
		c.Set(traceIDHeader, id)

		l := log.With().Str("trace_id", id).Logger()
		c.SetUserContext(l.WithContext(c.UserContext()))
		return c.Next()
	}
}

// GetTraceID returns the request's trace id, or "".
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}
