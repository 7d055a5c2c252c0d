package middleware

import (
	"crypto/subtle"
	"errors"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// CurrentUserID returns the session user's id.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	u := CurrentUser(c)
	if u == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(u.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CurrentRole returns the session user's role, or "".
func CurrentRole(c *fiber.Ctx) string {
	if u := CurrentUser(c); u != nil {
		return u.Role
	}
	return ""
}

// RequireVerified lets through only active users whose identity is verified.
// The flag is read from the database, not the session snapshot, so a KYC
// approval takes effect without logging in again.
func RequireVerified(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentUserID(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		var u domain.User
		err := db.WithContext(c.UserContext()).Select("id", "is_kyc_verified", "is_active").First(&u, "id = ?", id).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.Unauthorized(c, "Unauthorized")
		case err != nil:
			return response.FromError(c, err)
		}
		if !u.IsActive {
			return response.Error(c, "Account is inactive", fiber.StatusForbidden, nil)
		}
		if !u.IsKYCVerified {
			return response.Error(c, "Identity verification is required to invest", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// APIKeyHeader carries the shared secret for machine-to-machine endpoints.
const APIKeyHeader = "X-API-Key"

// APIKey guards webhook routes with a static shared key.
func APIKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(APIKeyHeader)
		if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return response.Unauthorized(c, "Invalid API key")
		}
		return c.Next()
	}
}
