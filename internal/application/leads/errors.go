package leads

import "somosrentable-backend/internal/pkg/apperr"

var (
	ErrLeadNotFound      = apperr.NotFound("Lead not found")
	ErrEmailRequired     = apperr.Validation("Email is required")
	ErrInvalidEmail      = apperr.Validation("Invalid email format")
	ErrInvalidSource     = apperr.Validation("Invalid lead source")
	ErrInvalidStatus     = apperr.Validation("Invalid lead status")
	ErrConvertViaFunnel  = apperr.Validation("Leads are converted when the prospect registers or converts a reservation")
	ErrInvalidType       = apperr.Validation("Invalid interaction type")
	ErrDescriptionNeeded = apperr.Validation("Description is required")
	ErrNotExecutive      = apperr.Validation("Assignee must be an active executive")
	ErrLeadConverted     = apperr.Precondition("Lead is already converted")
	ErrLeadExists        = apperr.Conflict("Lead already exists")
)
