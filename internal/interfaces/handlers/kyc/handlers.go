package kyc

import (
	kycsvc "somosrentable-backend/internal/application/kyc"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *kycsvc.Service
}

type submitRequest struct {
	FullName       string `json:"full_name"`
	DocumentNumber string `json:"document_number"`
	DocumentImage  string `json:"document_image"`
}

type reviewRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Status GET /api/v1/kyc/status
func (h *Handlers) Status(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	st, err := h.Service.Status(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "KYC status retrieved", st, nil)
}

// Submit POST /api/v1/kyc/submit. The decision is made before responding.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req submitRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	sub, err := h.Service.Submit(c.UserContext(), userID, kycsvc.SubmitInput{
		FullName:       req.FullName,
		DocumentNumber: req.DocumentNumber,
		DocumentImage:  req.DocumentImage,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "KYC submission processed", sub, nil)
}

// List GET /api/v1/kyc/submissions?status=
func (h *Handlers) List(c *fiber.Ctx) error {
	out, err := h.Service.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "KYC submissions retrieved", out, fiber.Map{"count": len(out)})
}

// Get GET /api/v1/kyc/submissions/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "KYC submission not found")
	if err != nil {
		return response.FromError(c, err)
	}
	sub, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "KYC submission retrieved", sub, nil)
}

// Review POST /api/v1/kyc/submissions/:id/review with {action: approve|reject, reason}.
func (h *Handlers) Review(c *fiber.Ctx) error {
	reviewer, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := request.UUIDParam(c, "id", "KYC submission not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var req reviewRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	sub, err := h.Service.Review(c.UserContext(), id, reviewer, req.Action, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "KYC submission reviewed", sub, nil)
}
