// Package kafka publishes and consumes the log change feed.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/observability"
)

// Writer is the subset of *kafka.Writer used by the Publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes change events as JSON, keyed by entity id.
type Publisher struct {
	writer Writer
	log    *slog.Logger
}

// NewPublisher creates a Publisher writing to topic. Each event is flushed as
// its own batch so a write does not wait for the batch timer.
func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	return NewPublisherWithWriter(newWriter(brokers, topic), log)
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w Writer, log *slog.Logger) *Publisher {
	return &Publisher{writer: w, log: log}
}

// Publish implements ports.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	err = p.writer.WriteMessages(ctx, msg)
	observability.RecordEventPublished(string(event.Type), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.log.Debug("event published", slog.String("type", string(event.Type)), slog.String("key", event.Key()))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error { return p.writer.Close() }
