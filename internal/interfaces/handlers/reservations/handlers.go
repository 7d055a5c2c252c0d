package reservations

import (
	"somosrentable-backend/internal/application/funnel"
	ressvc "somosrentable-backend/internal/application/reservations"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *ressvc.Service
	Funnel  *funnel.Service
}

type createRequest struct {
	ProjectID uuid.UUID       `json:"project_id"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
}

// Create POST /api/v1/reservations (public). The response carries the access
// token; it is also emailed to the holder.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.ProjectID == uuid.Nil {
		return response.FromError(c, apperr.Validation("project_id is required"))
	}
	r, err := h.Service.Create(c.UserContext(), ressvc.CreateInput{
		ProjectID: req.ProjectID,
		Email:     req.Email,
		Amount:    req.Amount,
		Name:      req.Name,
		Phone:     req.Phone,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Reservation created", r, nil)
}

// Get GET /api/v1/reservations/:token (public)
func (h *Handlers) Get(c *fiber.Ctx) error {
	r, err := h.Service.Lookup(c.UserContext(), c.Params("token"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation retrieved", fiber.Map{
		"reservation": r,
		"is_expired":  r.IsExpiredAt(h.Service.Clock()),
	}, nil)
}

// Mine GET /api/v1/reservations/my: pending holds under the session email.
func (h *Handlers) Mine(c *fiber.Ctx) error {
	u := middleware.CurrentUser(c)
	if u == nil || u.Email == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Service.PendingForEmail(c.UserContext(), u.Email)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservations retrieved", out, fiber.Map{"count": len(out)})
}

// Convert POST /api/v1/reservations/:token/convert
func (h *Handlers) Convert(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	inv, err := h.Funnel.ConvertReservation(c.UserContext(), c.Params("token"), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Reservation converted to investment", inv, nil)
}

// Cancel DELETE /api/v1/reservations/:token/cancel (public, token-holder)
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	r, err := h.Service.Cancel(c.UserContext(), c.Params("token"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation cancelled", r, nil)
}

// Sweep POST /api/v1/reservations/sweep: expire overdue holds now.
func (h *Handlers) Sweep(c *fiber.Ctx) error {
	n, err := h.Service.SweepExpired(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Expired reservations swept", fiber.Map{"expired": n}, nil)
}
