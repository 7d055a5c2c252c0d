package reservations

import "somosrentable-backend/internal/pkg/apperr"

var (
	ErrReservationNotFound = apperr.NotFound("Reservation not found")
	ErrProjectNotFound     = apperr.NotFound("Project not found")
	ErrEmailRequired       = apperr.Validation("Email is required")
	ErrInvalidEmail        = apperr.Validation("Invalid email format")
	ErrInvalidAmount       = apperr.Validation("Amount must be greater than zero")
	ErrInvalidPhone        = apperr.Validation("Invalid phone number")
	ErrProjectNotFundable  = apperr.Validation("Project is not open for investment")
	ErrKYCRequired         = apperr.Validation("Identity verification must be completed first")
	ErrNotPending          = apperr.Precondition("Reservation is not available for conversion")
	ErrExpired             = apperr.Precondition("Reservation has expired")
	ErrCannotCancel        = apperr.Precondition("Only pending reservations can be cancelled")
	ErrEmailMismatch       = apperr.Authorization("Reservation email does not match your account")
	ErrUserNotFound        = apperr.NotFound("User not found")
)
