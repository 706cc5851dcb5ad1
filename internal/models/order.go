package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	KindOrder    OrderKind = "order"
	KindPreorder OrderKind = "preorder"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentStripe PaymentMethod = "Stripe"
)

// Order is a checkout record. Items are snapshots taken at placement time and
// never follow later catalog edits. Preorders share the shape and add an
// estimated delivery date.
type Order struct {
	ID                int64           `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            int64           `json:"user_id"`
	Kind              OrderKind       `json:"kind"`
	Items             []OrderItem     `json:"items"`
	Address           Address         `json:"address"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Payment           bool            `json:"payment"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	PaymentSessionID  string          `json:"-"`
	StockReserved     bool            `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineItem is a requested (product, size, color, quantity) selection before
// it is reconciled against stock.
type LineItem struct {
	ProductID int64  `json:"itemId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

const (
	OrderStatusPlaced    = "Order Placed"
	OrderStatusPacking   = "Packing"
	OrderStatusShipped   = "Shipped"
	OrderStatusInTransit = "Delivery in progress"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

var orderStatuses = []string{
	OrderStatusPlaced,
	OrderStatusPacking,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// OrderStatuses lists regular order statuses in fulfillment order. Admins may
// set any of them at any time.
func OrderStatuses() []string {
	out := make([]string, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func ValidOrderStatus(s string) bool {
	for _, v := range orderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PreorderStatus string

const (
	PreorderPending    PreorderStatus = "Pending"
	PreorderConfirmed  PreorderStatus = "Confirmed"
	PreorderProcessing PreorderStatus = "Processing"
	PreorderReady      PreorderStatus = "Ready"
	PreorderCancelled  PreorderStatus = "Cancelled"
)

var preorderTransitions = map[PreorderStatus][]PreorderStatus{
	PreorderPending:    {PreorderConfirmed, PreorderCancelled},
	PreorderConfirmed:  {PreorderProcessing},
	PreorderProcessing: {PreorderReady},
}

func (s PreorderStatus) Valid() bool {
	switch s {
	case PreorderPending, PreorderConfirmed, PreorderProcessing, PreorderReady, PreorderCancelled:
		return true
	}
	return false
}

func (s PreorderStatus) Terminal() bool {
	return s == PreorderReady || s == PreorderCancelled
}

func (s PreorderStatus) CanTransition(to PreorderStatus) bool {
	for _, next := range preorderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Deletable reports whether the owner may still withdraw the preorder.
func (s PreorderStatus) Deletable() bool {
	return !s.Terminal()
}

type CartKind string

const (
	CartRegular  CartKind = "cart"
	CartPreorder CartKind = "preorder-cart"
)

// Cart maps product id to composite size/color key to quantity.
type Cart map[int64]map[string]int
