// Package fallback composes a primary and a secondary store. The primary is
// demoted after its first failure and stays demoted until Recover succeeds.
// A primary that outlives half of the caller's deadline counts as failed.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/observability"
	"activity-tracker/internal/ports"
)

// Pinger is implemented by stores that can answer a cheap liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store routes calls to the primary until it fails once, then to the
// secondary.
type Store struct {
	primary   ports.Store
	secondary ports.Store
	log       *slog.Logger

	mu       sync.RWMutex
	degraded bool
}

// New returns a two-tier store.
func New(primary, secondary ports.Store, log *slog.Logger) *Store {
	observability.SetStoreDegraded(false)
	return &Store{primary: primary, secondary: secondary, log: log}
}

// Degraded reports whether calls are currently served by the secondary.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Store) active() ports.Store {
	if s.Degraded() {
		return s.secondary
	}
	return s.primary
}

func (s *Store) demote(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	observability.SetStoreDegraded(true)
	s.log.Warn("primary store failed, switching to fallback",
		slog.String("op", op), slog.String("error", err.Error()))
}

// callerDone reports whether the caller's own context ended. Errors then
// belong to the caller, not the store.
func callerDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// primaryContext bounds the primary attempt to half of the caller's remaining
// budget, leaving the other half for the secondary.
func primaryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Until(deadline)/2)
}

func call[T any](s *Store, ctx context.Context, op string, fn func(context.Context, ports.Store) (T, error)) (T, error) {
	if s.Degraded() {
		return fn(ctx, s.secondary)
	}
	pctx, cancel := primaryContext(ctx)
	v, err := fn(pctx, s.primary)
	cancel()
	if err == nil || callerDone(ctx, err) {
		return v, err
	}
	s.demote(op, err)
	return fn(ctx, s.secondary)
}

// InsertLog implements ports.LogStore.
func (s *Store) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	return call(s, ctx, "insert_log", func(ctx context.Context, st ports.Store) (domain.LogEntry, error) {
		return st.InsertLog(ctx, entry)
	})
}

// ListLogs implements ports.LogStore.
func (s *Store) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	return call(s, ctx, "list_logs", func(ctx context.Context, st ports.Store) ([]domain.LogEntry, error) {
		return st.ListLogs(ctx)
	})
}

// DeleteLogs implements ports.LogStore.
func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	return call(s, ctx, "delete_logs", func(ctx context.Context, st ports.Store) (int, error) {
		return st.DeleteLogs(ctx, ids)
	})
}

// InsertActivity implements ports.ActivityStore.
func (s *Store) InsertActivity(ctx context.Context, name string) error {
	_, err := call(s, ctx, "insert_activity", func(ctx context.Context, st ports.Store) (struct{}, error) {
		return struct{}{}, st.InsertActivity(ctx, name)
	})
	return err
}

// ListActivities implements ports.ActivityStore.
func (s *Store) ListActivities(ctx context.Context) ([]string, error) {
	return call(s, ctx, "list_activities", func(ctx context.Context, st ports.Store) ([]string, error) {
		return st.ListActivities(ctx)
	})
}

// Recover re-promotes the primary if it answers a probe. Stores without a
// Ping method are probed with ListActivities.
func (s *Store) Recover(ctx context.Context) error {
	if !s.Degraded() {
		return nil
	}
	var err error
	if p, ok := s.primary.(Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = s.primary.ListActivities(ctx)
	}
	if err != nil {
		return fmt.Errorf("primary still unavailable: %w", err)
	}

	s.mu.Lock()
	s.degraded = false
	s.mu.Unlock()
	observability.SetStoreDegraded(false)
	s.log.Info("primary store recovered")
	return nil
}

// Close closes both tiers.
func (s *Store) Close() error {
	return errors.Join(s.primary.Close(), s.secondary.Close())
}
