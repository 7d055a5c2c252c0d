// Package request holds small parsing helpers shared by the HTTP handlers.
package request

import (
	"encoding/json"
	"strconv"

	"somosrentable-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidBody = apperr.Validation("Invalid request body")

// UUIDParam parses a path parameter as a uuid. A malformed id is reported as
// not found, the same as an unknown one.
func UUIDParam(c *fiber.Ctx, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound("%s", notFound)
	}
	return id, nil
}

// Body decodes the JSON body into v.
func Body(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return ErrInvalidBody
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return ErrInvalidBody
	}
	return nil
}

// DecimalQuery parses a query parameter as a decimal amount.
func DecimalQuery(c *fiber.Ctx, name string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Query(name))
	if err != nil {
		return decimal.Zero, apperr.Validation("%s must be a number", name)
	}
	return d, nil
}

// Page reads ?page=, defaulting to 1.
func Page(c *fiber.Ctx) int {
	p, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
