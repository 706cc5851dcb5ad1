// Package payment talks to the hosted card checkout provider.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPaid   Status = "paid"
	StatusFailed Status = "failed"
	StatusOpen   Status = "open"
)

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	SessionStatus(ctx context.Context, sessionID string) (Status, error)
}

type SessionItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type SessionRequest struct {
	OrderID     int64
	OrderNumber string
	Items       []SessionItem
	DeliveryFee decimal.Decimal
	SuccessURL  string
	CancelURL   string
}

// Session is a created checkout; URL is where the customer is redirected.
type Session struct {
	ID  string
	URL string
}
