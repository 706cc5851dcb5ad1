package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safar/go-storefront/internal/apperr"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassDeadlock:
		return "deadlock"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "permanent"
	}
}

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var (
	ErrUserNotFound     = apperr.NotFound("User not found")
	ErrAdminNotFound    = apperr.NotFound("Admin not found")
	ErrProductNotFound  = apperr.NotFound("Product not found")
	ErrOrderNotFound    = apperr.NotFound("Order not found")
	ErrPreorderNotFound = apperr.NotFound("Preorder not found")

	ErrInsufficientStock = apperr.New(apperr.KindInsufficientStock, "Insufficient stock")
	ErrOutOfStock        = apperr.New(apperr.KindInsufficientStock, "Out of stock")

	ErrNotPreorderEligible = apperr.Validation("Product is not available for preorder")
	ErrInvalidStatus       = apperr.Validation("Invalid status")
	ErrInvalidTransition   = apperr.Conflict("Status change not allowed")
	ErrPreorderLocked      = apperr.Conflict("Preorder can no longer be deleted")
	ErrOrderCancelled      = apperr.Conflict("Order has been cancelled")
	ErrEmailTaken          = apperr.Conflict("Email already registered")
)

// StockError reports a shortfall for one line item. It matches
// ErrInsufficientStock under errors.Is.
type StockError struct {
	ProductID int64
	Name      string
	Size      string
	Color     string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return e.Message()
}

func (e *StockError) Message() string {
	return fmt.Sprintf("Insufficient stock for %s (size %s): requested %d, available %d",
		e.Name, e.Size, e.Requested, e.Available)
}

func (e *StockError) Kind() apperr.Kind {
	return apperr.KindInsufficientStock
}

// Shortfall is how many units the request exceeds stock by.
func (e *StockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
