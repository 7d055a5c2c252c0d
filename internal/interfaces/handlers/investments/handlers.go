package investments

import (
	invsvc "somosrentable-backend/internal/application/investments"
	"somosrentable-backend/internal/constants"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *invsvc.Service
}

type createRequest struct {
	ProjectID uuid.UUID       `json:"project_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// List GET /api/v1/investments: the caller's own investments.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Service.ListForInvestor(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investments retrieved", out, fiber.Map{"count": len(out)})
}

// Create POST /api/v1/investments. Routed behind RequireVerified.
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.ProjectID == uuid.Nil {
		return response.FromError(c, apperr.Validation("project_id is required"))
	}
	inv, err := h.Service.Open(c.UserContext(), userID, req.ProjectID, req.Amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Investment created", inv, nil)
}

// Get GET /api/v1/investments/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	inv, err := h.visible(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investment retrieved", inv, nil)
}

// Projection GET /api/v1/investments/:id/projection
func (h *Handlers) Projection(c *fiber.Ctx) error {
	inv, err := h.visible(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Projection calculated", invsvc.ProjectionOf(inv), nil)
}

// visible loads the investment if the caller owns it or is staff. Anyone else
// gets not found.
func (h *Handlers) visible(c *fiber.Ctx) (*domain.Investment, error) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	id, err := request.UUIDParam(c, "id", "Investment not found")
	if err != nil {
		return nil, err
	}
	inv, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID && !constants.AllowedRole(constants.UserView, middleware.CurrentRole(c)) {
		return nil, invsvc.ErrInvestmentNotFound
	}
	return inv, nil
}
