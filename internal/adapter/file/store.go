// Package file stores logs and activities in a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"activity-tracker/internal/domain"
)

// document is the on-disk layout.
type document struct {
	Logs       []domain.LogEntry           `json:"logs"`
	Activities []domain.ActivityDefinition `json:"activities"`
}

// Store reads the document before every operation and rewrites it after
// every mutation.
type Store struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

// NewStore returns a Store backed by path. The file is created on first write.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file store: creating directory: %w", err)
		}
	}
	return &Store{path: path, log: log}, nil
}

func (s *Store) read() (document, error) {
	var doc document
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("file store: decoding %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file and rename.
func (s *Store) write(doc document) error {
	if doc.Logs == nil {
		doc.Logs = []domain.LogEntry{}
	}
	if doc.Activities == nil {
		doc.Activities = []domain.ActivityDefinition{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tracker-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// InsertLog implements ports.LogStore.
func (s *Store) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return domain.LogEntry{}, err
	}
	entry.ID = uuid.NewString()
	created := time.Now().UTC()
	entry.CreatedAt = &created
	doc.Logs = append(doc.Logs, entry)
	if err := s.write(doc); err != nil {
		return domain.LogEntry{}, err
	}
	return entry, nil
}

// ListLogs implements ports.LogStore.
func (s *Store) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Logs, nil
}

// DeleteLogs implements ports.LogStore.
func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return 0, err
	}

	before := len(doc.Logs)
	if len(ids) == 0 {
		doc.Logs = nil
	} else {
		drop := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			drop[id] = struct{}{}
		}
		kept := make([]domain.LogEntry, 0, len(doc.Logs))
		for _, e := range doc.Logs {
			if _, ok := drop[e.ID]; !ok {
				kept = append(kept, e)
			}
		}
		doc.Logs = kept
	}
	removed := before - len(doc.Logs)
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(doc); err != nil {
		return 0, err
	}
	s.log.Debug("file store rewritten", slog.String("path", s.path), slog.Int("removed", removed))
	return removed, nil
}

// InsertActivity implements ports.ActivityStore.
func (s *Store) InsertActivity(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Activities = append(doc.Activities, domain.ActivityDefinition{Name: name})
	return s.write(doc)
}

// ListActivities implements ports.ActivityStore.
func (s *Store) ListActivities(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(doc.Activities))
	for _, a := range doc.Activities {
		out = append(out, a.Name)
	}
	return out, nil
}

// Close implements ports.Store.
func (s *Store) Close() error { return nil }
