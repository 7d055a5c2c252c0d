package auth

import "somosrentable-backend/internal/pkg/apperr"

// Unknown email and wrong password stay distinguishable for the login form.
var (
	ErrEmailPasswordRequired = apperr.Validation("Email and password are required")
	ErrInvalidEmail          = apperr.Unauthenticated("Invalid Email")
	ErrIncorrectPassword     = apperr.Unauthenticated("Incorrect Password")
	ErrInactiveAccount       = apperr.Authorization("Account is disabled")
)
