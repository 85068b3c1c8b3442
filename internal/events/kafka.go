package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"riteswipe-api/internal/models"

	"github.com/segmentio/kafka-go"
)

// Event is the record published for every outbox event.
type Event struct {
	ID        string          `json:"id"`
	Group     string          `json:"group"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes outbox events to a topic, keyed by group so that
// events for one user or task stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, ev models.OutboxEvent) error {
	msg, err := buildMessage(ev)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func buildMessage(ev models.OutboxEvent) (kafka.Message, error) {
	payload := json.RawMessage(ev.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	value, err := json.Marshal(Event{
		ID:        ev.ID,
		Group:     ev.Group,
		Event:     ev.Event,
		Payload:   payload,
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %s: %w", ev.ID, err)
	}
	return kafka.Message{
		Key:   []byte(ev.Group),
		Value: value,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
		},
	}, nil
}
