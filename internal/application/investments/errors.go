package investments

import "somosrentable-backend/internal/pkg/apperr"

var (
	ErrInvestmentNotFound  = apperr.NotFound("Investment not found")
	ErrProofNotFound       = apperr.NotFound("Payment proof not found")
	ErrProjectNotFound     = apperr.NotFound("Project not found")
	ErrProjectNotFundable  = apperr.Validation("Project is not open for investment")
	ErrInvalidAmount       = apperr.Validation("Amount must be greater than zero")
	ErrProofImageRequired  = apperr.Validation("Proof image is required")
	ErrReasonRequired      = apperr.Validation("Rejection reason is required")
	ErrNotAcceptingProof   = apperr.Precondition("Investment is not awaiting payment")
	ErrProofProcessed      = apperr.Precondition("Payment proof was already processed")
	ErrInvestmentNotInFlow = apperr.Precondition("Investment is not in the payment review cycle")
)
