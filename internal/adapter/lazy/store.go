// Package lazy defers opening a store until it is first used.
package lazy

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/ports"
)

var errClosed = errors.New("store closed")

// Opener connects to a backing store.
type Opener func(ctx context.Context) (ports.Store, error)

// Store opens its target on first use. A failed open is retried on the next
// call; a successful one is kept until Close.
type Store struct {
	name string
	open Opener
	log  *slog.Logger

	mu     sync.Mutex
	target ports.Store
	closed bool
}

// New wraps open. name is used in log records only.
func New(name string, open Opener, log *slog.Logger) *Store {
	return &Store{name: name, open: open, log: log}
}

func (s *Store) get(ctx context.Context) (ports.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	if s.target != nil {
		return s.target, nil
	}
	st, err := s.open(ctx)
	if err != nil {
		s.log.Debug("store open failed", slog.String("store", s.name), slog.String("error", err.Error()))
		return nil, err
	}
	s.log.Info("store opened", slog.String("store", s.name))
	s.target = st
	return st, nil
}

// InsertLog implements ports.LogStore.
func (s *Store) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	st, err := s.get(ctx)
	if err != nil {
		return domain.LogEntry{}, err
	}
	return st.InsertLog(ctx, entry)
}

// ListLogs implements ports.LogStore.
func (s *Store) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	st, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return st.ListLogs(ctx)
}

// DeleteLogs implements ports.LogStore.
func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	st, err := s.get(ctx)
	if err != nil {
		return 0, err
	}
	return st.DeleteLogs(ctx, ids)
}

// InsertActivity implements ports.ActivityStore.
func (s *Store) InsertActivity(ctx context.Context, name string) error {
	st, err := s.get(ctx)
	if err != nil {
		return err
	}
	return st.InsertActivity(ctx, name)
}

// ListActivities implements ports.ActivityStore.
func (s *Store) ListActivities(ctx context.Context) ([]string, error) {
	st, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return st.ListActivities(ctx)
}

// Ping opens the target if needed and probes it when it supports Ping.
func (s *Store) Ping(ctx context.Context) error {
	st, err := s.get(ctx)
	if err != nil {
		return err
	}
	if p, ok := st.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the target if it was opened. Later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.target == nil {
		return nil
	}
	err := s.target.Close()
	s.target = nil
	return err
}
