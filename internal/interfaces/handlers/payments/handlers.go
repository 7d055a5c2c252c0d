package payments

import (
	"time"

	invsvc "somosrentable-backend/internal/application/investments"
	"somosrentable-backend/internal/constants"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

type Handlers struct {
	Service *invsvc.Service
}

type proofRequest struct {
	InvestmentID         uuid.UUID       `json:"investment_id"`
	ProofImage           string          `json:"proof_image"`
	Amount               decimal.Decimal `json:"amount"`
	BankName             string          `json:"bank_name"`
	TransactionReference string          `json:"transaction_reference"`
	TransactionDate      *time.Time      `json:"transaction_date"`
	Notes                string          `json:"notes"`
}

type reviewRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// UploadProof POST /api/v1/payments/proof
func (h *Handlers) UploadProof(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req proofRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	proof, err := h.Service.UploadProof(c.UserContext(), userID, req.InvestmentID, invsvc.ProofInput{
		ProofImage:           req.ProofImage,
		Amount:               req.Amount,
		BankName:             req.BankName,
		TransactionReference: req.TransactionReference,
		TransactionDate:      req.TransactionDate,
		Notes:                req.Notes,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Payment proof uploaded", proof, nil)
}

// Pending GET /api/v1/payments/pending
func (h *Handlers) Pending(c *fiber.Ctx) error {
	out, err := h.Service.PendingProofs(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending payment proofs retrieved", out, fiber.Map{"count": len(out)})
}

// Get GET /api/v1/payments/:id, visible to the investment owner and staff.
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := request.UUIDParam(c, "id", "Payment proof not found")
	if err != nil {
		return response.FromError(c, err)
	}
	proof, err := h.Service.GetProof(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	owner := proof.Investment != nil && proof.Investment.UserID == userID
	if !owner && !constants.AllowedRole(constants.UserView, middleware.CurrentRole(c)) {
		return response.FromError(c, invsvc.ErrProofNotFound)
	}
	return response.Success(c, "Payment proof retrieved", proof, nil)
}

// Review POST /api/v1/payments/:id/review with {action: approve|reject, reason}.
func (h *Handlers) Review(c *fiber.Ctx) error {
	reviewer, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := request.UUIDParam(c, "id", "Payment proof not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var req reviewRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	switch req.Action {
	case actionApprove:
		inv, err := h.Service.Approve(c.UserContext(), id, reviewer)
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, "Payment approved, investment is active", inv, nil)
	case actionReject:
		proof, err := h.Service.Reject(c.UserContext(), id, reviewer, req.Reason)
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, "Payment proof rejected", proof, nil)
	default:
		return response.FromError(c, apperr.Validation("action must be approve or reject"))
	}
}
