// Package apperrors defines the error taxonomy returned by the order
// subsystem. Every failure an operation can surface to its caller is one of
// four kinds, so the transport layer can map errors to status codes with a
// single switch.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindUnknown is any error not produced by this package.
	KindUnknown Kind = iota
	// KindBadRequest is malformed input: empty items, incomplete address,
	// non-positive quantity, illegal status transition.
	KindBadRequest
	// KindForbidden is an ownership or role violation.
	KindForbidden
	// KindNotFound is an unknown order or referenced product.
	KindNotFound
	// KindConflict is a resource-state clash, currently insufficient stock.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries machine-readable details, e.g. the offending patch
	// fields on a Forbidden, or product_id/available/requested on a stock
	// Conflict.
	Fields map[string]any
}

func (e *Error) Error() string { return e.Message }

// BadRequest builds a KindBadRequest error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenFields builds a KindForbidden error naming the fields the actor was
// not allowed to change.
func ForbiddenFields(fields []string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Message: fmt.Sprintf("not allowed to update fields: %s", strings.Join(fields, ", ")),
		Fields:  map[string]any{"fields": fields},
	}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock builds the stock Conflict, carrying the product and the
// available/requested counts so clients can adjust the order.
func InsufficientStock(productID string, available, requested int) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)", productID, requested, available),
		Fields: map[string]any{
			"product_id": productID,
			"available":  available,
			"requested":  requested,
		},
	}
}

// InvalidTransition builds the BadRequest for an illegal status move, naming
// both states.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindBadRequest,
		Message: fmt.Sprintf("invalid status transition from %s to %s", from, to),
		Fields:  map[string]any{"from": from, "to": to},
	}
}

// KindOf returns the Kind of err, or KindUnknown for errors not created here.
// It unwraps, so stores may annotate domain errors with context.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
