// Package apperr is the error taxonomy shared by the application services.
// Handlers translate a Kind into an HTTP status; services never see HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a caller-recoverable failure.
type Kind int

const (
	// KindInternal is anything that is not an *Error (storage failures etc.).
	KindInternal Kind = iota
	// KindValidation is bad input: missing field, amount below minimum.
	KindValidation
	// KindPrecondition is a transition attempted from the wrong status.
	KindPrecondition
	// KindAuthorization is a caller who may not act on the resource.
	KindAuthorization
	// KindUnauthenticated is a missing or invalid credential.
	KindUnauthenticated
	// KindNotFound is an unknown id, token or slug.
	KindNotFound
	// KindConflict is an idempotent duplicate. Not a failure.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindAuthorization:
		return "authorization"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a Kind and a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// WithDetails returns a copy of e carrying extra response details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: details}
}

// Is matches another *Error of the same kind and message, so copies made by
// WithDetails still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func Precondition(format string, args ...interface{}) *Error {
	return newf(KindPrecondition, format, args...)
}

func Authorization(format string, args ...interface{}) *Error {
	return newf(KindAuthorization, format, args...)
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newf(KindUnauthenticated, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
