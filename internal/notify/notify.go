// Package notify tells the shop's back office about new orders. Delivery is
// best effort: callers log failures and never fail the order because of them.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/models"
)

type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order, isPreorder bool) error
	Close() error
}

type OrderCreatedMessage struct {
	Mailbox     string          `json:"mailbox,omitempty"`
	Subject     string          `json:"subject"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Payment     string          `json:"payment_method"`
	Items       []MessageItem   `json:"items"`
	IsPreorder  bool            `json:"is_preorder"`
}

type MessageItem struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity"`
}

func NewOrderCreatedMessage(mailbox string, order *models.Order, isPreorder bool) OrderCreatedMessage {
	subject := fmt.Sprintf("New order %s", order.OrderNumber)
	if isPreorder {
		subject = fmt.Sprintf("New preorder %s", order.OrderNumber)
	}

	items := make([]MessageItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, MessageItem{
			Name:     item.Name,
			Size:     item.Size,
			Color:    item.Color,
			Quantity: item.Quantity,
		})
	}

	return OrderCreatedMessage{
		Mailbox:     mailbox,
		Subject:     subject,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Amount:      order.Amount,
		Payment:     string(order.PaymentMethod),
		Items:       items,
		IsPreorder:  isPreorder,
	}
}

func routingKey(isPreorder bool) string {
	if isPreorder {
		return "preorder.created"
	}
	return "order.created"
}

// New builds the notifier selected by cfg.Driver.
func New(cfg config.NotifyConfig, logger zerolog.Logger) (Notifier, error) {
	switch cfg.Driver {
	case config.NotifyDriverAMQP:
		return NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AdminMailbox, logger)
	case config.NotifyDriverKafka:
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.AdminMailbox, logger), nil
	case config.NotifyDriverLog, "":
		return NewLogNotifier(cfg.AdminMailbox, logger), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}

type LogNotifier struct {
	mailbox string
	logger  zerolog.Logger
}

func NewLogNotifier(mailbox string, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{mailbox: mailbox, logger: logger}
}

func (n *LogNotifier) NotifyOrderCreated(ctx context.Context, order *models.Order, isPreorder bool) error {
	msg := NewOrderCreatedMessage(n.mailbox, order, isPreorder)
	n.logger.Info().
		Str("subject", msg.Subject).
		Str("mailbox", msg.Mailbox).
		Str("order_number", msg.OrderNumber).
		Str("amount", msg.Amount.StringFixed(2)).
		Int("items", len(msg.Items)).
		Msg("order notification")
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
