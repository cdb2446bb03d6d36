package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"activity-tracker/internal/domain"
)

// Reader exposes the minimal kafka.Reader interface needed by the Watcher.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// HandlerFunc receives decoded change events.
type HandlerFunc func(context.Context, domain.Event) error

// Watcher pulls change events off the topic and dispatches them to a handler.
type Watcher struct {
	reader  Reader
	handler HandlerFunc
	log     *slog.Logger
}

// NewReader builds a consumer-group reader for topic.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

// NewWatcher constructs a Watcher.
func NewWatcher(reader Reader, handler HandlerFunc, log *slog.Logger) *Watcher {
	return &Watcher{reader: reader, handler: handler, log: log}
}

// Run blocks until ctx is cancelled. Malformed messages are committed and
// skipped; messages whose handler fails are left uncommitted.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.log.Warn("fetch error", slog.String("error", err.Error()))
			continue
		}

		event, err := decode(msg)
		if err != nil {
			w.log.Warn("decode error",
				slog.String("topic", msg.Topic), slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset), slog.String("error", err.Error()))
			if err := w.reader.CommitMessages(ctx, msg); err != nil {
				w.log.Warn("commit error after decode failure", slog.String("error", err.Error()))
			}
			continue
		}

		if err := w.handler(ctx, event); err != nil {
			w.log.Warn("handler error", slog.String("type", string(event.Type)), slog.String("error", err.Error()))
			continue
		}

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			w.log.Warn("commit error", slog.String("error", err.Error()))
		}
	}
}

// Close closes the reader.
func (w *Watcher) Close() error { return w.reader.Close() }

func decode(msg kafka.Message) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.Event{}, err
	}
	if event.Type == "" {
		return domain.Event{}, fmt.Errorf("missing event type")
	}
	return event, nil
}
