// Package postgres provides a PostgreSQL-backed store using pgx.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/migrate"
)

// Repository provides Postgres-backed persistence for logs and activities.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to url, applies migrations and returns a Repository that
// owns the pool.
func Open(ctx context.Context, url string, log *slog.Logger) (*Repository, error) {
	if url == "" {
		return nil, errors.New("postgres: URL is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(c); err != nil {
		pool.Close()
		return nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	err = migrate.Run(ctx, migrate.Postgres, db, log)
	db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return NewRepository(pool, log), nil
}

// NewRepository constructs a Repository over an existing pool.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// InsertLog implements ports.LogStore.
func (r *Repository) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	id := uuid.New()
	created := time.Now().UTC().Truncate(time.Microsecond)
	entry = domain.TruncateToMicros(entry)

	const stmt = `INSERT INTO activity_logs (id, activity, start_at, end_at, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.pool.Exec(ctx, stmt, id, entry.Activity, entry.Start, entry.End, created); err != nil {
		return domain.LogEntry{}, err
	}
	entry.ID = id.String()
	entry.CreatedAt = &created
	return entry, nil
}

// ListLogs implements ports.LogStore.
func (r *Repository) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	const query = `SELECT id::text, activity, start_at, end_at, created_at FROM activity_logs ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.LogEntry, 0)
	for rows.Next() {
		var (
			e       domain.LogEntry
			created time.Time
		)
		if err := rows.Scan(&e.ID, &e.Activity, &e.Start, &e.End, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = &created
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteLogs implements ports.LogStore.
func (r *Repository) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var n int64
	if len(ids) == 0 {
		tag, err := tx.Exec(ctx, `DELETE FROM activity_logs`)
		if err != nil {
			return 0, err
		}
		n = tag.RowsAffected()
	} else {
		tag, err := tx.Exec(ctx, `DELETE FROM activity_logs WHERE id::text = ANY($1)`, ids)
		if err != nil {
			return 0, err
		}
		n = tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	r.log.Debug("postgres deleted logs", slog.Int64("count", n))
	return int(n), nil
}

// InsertActivity implements ports.ActivityStore.
func (r *Repository) InsertActivity(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO activities (name) VALUES ($1)`, name)
	return err
}

// ListActivities implements ports.ActivityStore.
func (r *Repository) ListActivities(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM activities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}
