package users

import (
	"somosrentable-backend/internal/application/accounts"
	"somosrentable-backend/internal/application/sessions"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Accounts *accounts.Service
	Rdb      *redis.Client
}

type staffRequest struct {
	accounts.CreateInput
	Role string `json:"role"`
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

// Executives GET /api/v1/users/executives
func (h *Handlers) Executives(c *fiber.Ctx) error {
	out, err := h.Accounts.ListExecutives(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Executives retrieved", out, fiber.Map{"count": len(out)})
}

// CreateStaff POST /api/v1/users/staff
func (h *Handlers) CreateStaff(c *fiber.Ctx) error {
	var req staffRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	u, err := h.Accounts.CreateStaff(c.UserContext(), req.CreateInput, req.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "User created successfully", u, nil)
}

// SetActive PATCH /api/v1/users/:id/active. Deactivating signs the user out
// of every session.
func (h *Handlers) SetActive(c *fiber.Ctx) error {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := request.UUIDParam(c, "id", "User not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var req activeRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.IsActive == nil {
		return response.Error(c, "is_active is required", fiber.StatusBadRequest, nil)
	}
	u, err := h.Accounts.SetActive(c.UserContext(), actorID, id, *req.IsActive)
	if err != nil {
		return response.FromError(c, err)
	}
	if !u.IsActive {
		sessions.DestroyAll(c.UserContext(), h.Rdb, u.ID.String())
	}
	return response.Success(c, "User updated", u, nil)
}
