package statistics

import (
	statsvc "somosrentable-backend/internal/application/statistics"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *statsvc.Service
}

// Platform GET /api/v1/statistics/platform
func (h *Handlers) Platform(c *fiber.Ctx) error {
	out, err := h.Service.Platform(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Platform statistics", out, nil)
}

// Executives GET /api/v1/statistics/executives
func (h *Handlers) Executives(c *fiber.Ctx) error {
	out, err := h.Service.Executives(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Executive statistics", out, nil)
}

// Executive GET /api/v1/statistics/executives/:id. Executives may only read their own.
func (h *Handlers) Executive(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Executive not found")
	if err != nil {
		return response.FromError(c, err)
	}
	if middleware.CurrentRole(c) == domain.RoleExecutive {
		if me, _ := middleware.CurrentUserID(c); me != id {
			return response.Error(c, "Executives can only see their own statistics", fiber.StatusForbidden, nil)
		}
	}
	out, err := h.Service.ExecutiveByID(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Executive statistics", out, nil)
}

// Mine GET /api/v1/statistics/my
func (h *Handlers) Mine(c *fiber.Ctx) error {
	me, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Service.ExecutiveByID(c.UserContext(), me)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Executive statistics", out, nil)
}

// Projects GET /api/v1/statistics/projects
func (h *Handlers) Projects(c *fiber.Ctx) error {
	out, err := h.Service.Projects(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project statistics", out, nil)
}

// LeadSources GET /api/v1/statistics/lead-sources
func (h *Handlers) LeadSources(c *fiber.Ctx) error {
	out, err := h.Service.LeadSources(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lead source statistics", out, nil)
}
