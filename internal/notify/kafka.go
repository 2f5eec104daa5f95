package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer used to publish events.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka publishes every notification as a JSON event keyed by user id, so
// one user's events stay ordered within a partition.
type Kafka struct {
	writer MessageWriter
	topic  string
}

// NewKafkaWriter builds a synchronous writer for brokers.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafka(writer MessageWriter, topic string) *Kafka {
	return &Kafka{writer: writer, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Notify(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(msg.UserID),
		Value: value,
		Time:  msg.At,
	})
	if err != nil {
		return fmt.Errorf("failed to write event to %s: %w", k.topic, err)
	}
	return nil
}
