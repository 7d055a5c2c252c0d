package kyc

import "somosrentable-backend/internal/pkg/apperr"

var (
	ErrSubmissionNotFound = apperr.NotFound("KYC submission not found")
	ErrUserNotFound       = apperr.NotFound("User not found")
	ErrAlreadyVerified    = apperr.Precondition("Identity is already verified")
	ErrPendingExists      = apperr.Precondition("A submission is already pending review")
	ErrAlreadyProcessed   = apperr.Precondition("This submission was already processed")
	ErrFullNameRequired   = apperr.Validation("Full name is required")
	ErrDocumentRequired   = apperr.Validation("Document number is required")
	ErrImageRequired      = apperr.Validation("Document image is required")
	ErrReasonRequired     = apperr.Validation("Rejection reason is required")
	ErrInvalidAction      = apperr.Validation("Action must be approve or reject")
)
