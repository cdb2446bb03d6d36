// Package memory provides a process-local store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"activity-tracker/internal/domain"
)

// Store keeps logs and activities in memory, in insertion order.
type Store struct {
	mu         sync.RWMutex
	logs       []domain.LogEntry
	activities []string
	now        func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// InsertLog implements ports.LogStore.
func (s *Store) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	created := s.now().UTC()
	entry.CreatedAt = &created
	s.logs = append(s.logs, entry)
	return entry, nil
}

// ListLogs implements ports.LogStore.
func (s *Store) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out, nil
}

// DeleteLogs implements ports.LogStore.
func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		n := len(s.logs)
		s.logs = nil
		return n, nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.logs[:0]
	removed := 0
	for _, e := range s.logs {
		if _, ok := drop[e.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.logs = kept
	return removed, nil
}

// InsertActivity implements ports.ActivityStore.
func (s *Store) InsertActivity(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, name)
	return nil
}

// ListActivities implements ports.ActivityStore.
func (s *Store) ListActivities(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.activities))
	copy(out, s.activities)
	return out, nil
}

// Close implements ports.Store.
func (s *Store) Close() error { return nil }
