// Package sqlite stores logs in a local SQLite database via the pure-Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/migrate"
)

// Store implements ports.Store on a SQLite file.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies
// migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases shared and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrate.Run(ctx, migrate.SQLite, db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// InsertLog stores entry under a new id.
func (s *Store) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	entry.ID = uuid.NewString()
	created := time.Now().UTC()
	entry.CreatedAt = &created

	var end sql.NullString
	if entry.End != nil {
		end = sql.NullString{String: formatTime(*entry.End), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, activity, start_at, end_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Activity, formatTime(entry.Start), end, formatTime(created))
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("inserting log: %w", err)
	}
	return entry, nil
}

// ListLogs returns entries in insertion order.
func (s *Store) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, activity, start_at, end_at, created_at FROM activity_logs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var (
			e                 domain.LogEntry
			startStr, created string
			end               sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Activity, &startStr, &end, &created); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		if e.Start, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("parsing start of %s: %w", e.ID, err)
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end of %s: %w", e.ID, err)
			}
			e.End = &t
		}
		if c, err := parseTime(created); err == nil {
			e.CreatedAt = &c
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteLogs removes ids, or everything when ids is empty.
func (s *Store) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	q := `DELETE FROM activity_logs`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		q += ` WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// InsertActivity stores name.
func (s *Store) InsertActivity(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO activities (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// ListActivities returns names in insertion order.
func (s *Store) ListActivities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
