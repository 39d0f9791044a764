package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// Publisher fans order events out to downstream consumers after the order
// transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by order id so a
// single order's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	msg, err := message(event)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventType, k.topic, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func message(event domain.OrderEvent) (kafkaGo.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	return kafkaGo.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}, nil
}

// LogPublisher records events in the service log when no broker is configured.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	l.logger.Printf("order event: id=%s order=%s type=%s", event.ID, event.OrderID, event.EventType)
	return nil
}

func (l *LogPublisher) Close() error { return nil }
