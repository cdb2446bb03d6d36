package ports

import (
	"context"

	"activity-tracker/internal/domain"
)

// LogStore persists log entries. Implementations assign ID and CreatedAt.
type LogStore interface {
	InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error)
	ListLogs(ctx context.Context) ([]domain.LogEntry, error)
	// DeleteLogs removes the given ids, ignoring unknown ones. A nil or empty
	// slice removes every entry. It returns the number of rows removed.
	DeleteLogs(ctx context.Context, ids []string) (int, error)
}

// ActivityStore persists activity names. Uniqueness is enforced by callers.
type ActivityStore interface {
	InsertActivity(ctx context.Context, name string) error
	ListActivities(ctx context.Context) ([]string, error)
}

// Store is the full backing store contract.
type Store interface {
	LogStore
	ActivityStore
	Close() error
}

// EventPublisher receives change events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
