// Package apperr defines the error taxonomy shared by the service layer
// and the HTTP handlers. Every client-facing failure carries a short
// human-readable message and a stable kind; internal details stay in logs.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindStorage
)

// Error is the single error type propagated out of the service layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, never shown to callers
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock is a normal business outcome of approval, not a system
// fault: the request has already been persisted as rejected when this is
// returned.
func InsufficientStock(category string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for product %q", category),
	}
}

// Storage wraps a store-level fault. The cause is logged, never surfaced.
func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error to its client-facing status code. Unknown
// errors are treated as internal failures.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to callers. Storage
// faults collapse to a generic message so internals never leak.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindStorage {
		return "internal server error"
	}
	return e.Message
}
