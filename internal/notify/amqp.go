package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/safar/go-storefront/internal/models"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes order events to a durable topic exchange.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	mailbox  string
	logger   zerolog.Logger
}

func NewAMQPNotifier(amqpURL, exchange, mailbox string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPNotifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		mailbox:  mailbox,
		logger:   logger,
	}, nil
}

func (n *AMQPNotifier) NotifyOrderCreated(ctx context.Context, order *models.Order, isPreorder bool) error {
	body, err := json.Marshal(NewOrderCreatedMessage(n.mailbox, order, isPreorder))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := routingKey(isPreorder)
	n.logger.Debug().
		Str("exchange", n.exchange).
		Str("routing_key", key).
		Str("order_number", order.OrderNumber).
		Msg("publishing order event")

	err = n.channel.Publish(
		n.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.OrderNumber,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
