package response

import (
	"errors"

	"somosrentable-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SuccessBody is the envelope of every 2xx answer.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func send(c *fiber.Ctx, code int, message string, data, metadata interface{}) error {
	if metadata == nil {
		metadata = fiber.Map{}
	}
	return c.Status(code).JSON(SuccessBody{Status: statusSuccess, Message: message, Data: data, Metadata: metadata})
}

// Success answers 200 in the success envelope.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusOK, message, data, metadata)
}

// SuccessStatus answers code in the success envelope, for outcomes such as a
// duplicate ingestion that carry a non 2xx status but are not failures.
func SuccessStatus(c *fiber.Ctx, code int, message string, data interface{}, metadata interface{}) error {
	return send(c, code, message, data, metadata)
}

func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusCreated, message, data, metadata)
}

// Error answers statusCode in the error envelope. Details default to {} so
// clients can always index into them.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = fiber.Map{}
	}
	body := ErrorBody{Status: statusError}
	body.Error.Message = message
	body.Error.StatusCode = statusCode
	body.Error.Details = details
	return c.Status(statusCode).JSON(body)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindPrecondition:
		return fiber.StatusUnprocessableEntity
	case apperr.KindAuthorization:
		return fiber.StatusForbidden
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError renders err in the standard error format. Domain errors keep their
// message; anything else is logged and reported as a 500.
func FromError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		var details interface{}
		if len(ae.Details) > 0 {
			details = ae.Details
		}
		return Error(c, ae.Message, StatusFor(ae.Kind), details)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Message, fe.Code, nil)
	}
	log.Ctx(c.UserContext()).Error().Err(err).Str("method", c.Method()).Str("route", c.Route().Path).Msg("unhandled error")
	return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
