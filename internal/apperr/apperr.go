// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInsufficientStock
	KindValidation
	KindUnauthorized
	KindForbidden
	KindExternal
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindExternal:
		return "external_service_failure"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a kind and a message that is safe to show to the storefront.
type Error struct {
	Code Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Kind() Kind {
	return e.Code
}

// Message returns the client-facing text without the wrapped cause.
func (e *Error) Message() string {
	return e.Msg
}

func New(kind Kind, msg string) *Error {
	return &Error{Code: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Code: kind, Msg: msg, Err: err}
}

func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

func External(msg string, err error) *Error {
	return Wrap(KindExternal, msg, err)
}

type kinded interface {
	Kind() Kind
}

type messaged interface {
	Message() string
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err. Unclassified errors
// collapse to a generic text so internals do not leak.
func MessageOf(err error) string {
	var m messaged
	if errors.As(err, &m) {
		return m.Message()
	}
	return "Internal server error"
}
