package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/safar/go-storefront/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes order events to a topic keyed by order number, so
// every event for one order lands on the same partition.
type KafkaNotifier struct {
	writer  messageWriter
	mailbox string
	logger  zerolog.Logger
}

func NewKafkaNotifier(brokers []string, topic, mailbox string, logger zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf("kafka writer: "+msg, args...)
		}),
	}

	return &KafkaNotifier{writer: writer, mailbox: mailbox, logger: logger}
}

func (n *KafkaNotifier) NotifyOrderCreated(ctx context.Context, order *models.Order, isPreorder bool) error {
	body, err := json.Marshal(NewOrderCreatedMessage(n.mailbox, order, isPreorder))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(routingKey(isPreorder))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
