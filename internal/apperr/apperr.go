// Package apperr defines the error taxonomy shared by every core operation.
// Validation, authorization and funds errors are returned as typed values
// carrying the numbers a caller needs to render; persistence and conflict
// errors carry a stable code and hide driver details.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindAuthorization     Kind = "authorization"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
	KindPersistence       Kind = "persistence"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// OrderID is set when the failure left an order behind that needs
	// manual reconciliation.
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Public returns the message safe to show outside the process.
func (e *Error) Public() string {
	switch e.Kind {
	case KindPersistence, KindInternal:
		return "internal error, please contact support"
	case KindConflict:
		return "the resource is busy, please retry"
	}
	return e.Message
}

// Kinded is implemented by domain errors that carry their own fields.
type Kinded interface {
	error
	Kind() Kind
	Code() string
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Code: "forbidden", Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Persistence(code string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: code, Message: "persistence failure", Err: err}
}

func Conflict(code string, err error) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: "concurrent modification", Err: err}
}

// WithOrder returns a copy of e pointing at the order left behind.
func (e *Error) WithOrder(orderID string) *Error {
	cp := *e
	cp.OrderID = orderID
	return &cp
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	var k Kinded
	if errors.As(err, &k) {
		return k.Code()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// PublicMessage returns what may be shown to an external caller for err.
func PublicMessage(err error) string {
	var k Kinded
	if errors.As(err, &k) {
		return k.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Public()
	}
	return "internal error, please contact support"
}

func OrderIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.OrderID
	}
	return ""
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuthorization:
		return http.StatusForbidden
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
