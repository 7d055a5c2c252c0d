package middleware

import (
	"somosrentable-backend/internal/constants"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission admits session users whose role holds the capability.
// Routes are wired at startup, so an unknown capability panics there rather
// than failing every request.
func AuthorizePermission(capability string) fiber.Handler {
	if len(constants.PermissionRoles[capability]) == 0 {
		panic("no roles configured for capability " + capability)
	}
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !constants.AllowedRole(capability, u.Role) {
			log.Debug().Str("capability", capability).Str("role", u.Role).Str("trace_id", GetTraceID(c)).
				Msg("capability denied")
			return response.Error(c, "Your role does not allow this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
