package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/migrate"
)

// Client implements ports.Store on top of MySQL tables.
type Client struct {
	db  *sql.DB
	log *slog.Logger
}

// NewClient opens a MySQL connection using the provided DSN and applies
// pending migrations. parseTime and a UTC location are forced on the DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname
func NewClient(ctx context.Context, dsn string, log *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	// Conservative pool defaults; a single user rarely needs more.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate.Run(ctx, migrate.MySQL, db, log); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db, log: log}, nil
}

// InsertLog stores one entry with a generated id.
func (c *Client) InsertLog(ctx context.Context, entry domain.LogEntry) (domain.LogEntry, error) {
	entry = domain.TruncateToMicros(entry)
	entry.ID = uuid.NewString()
	created := time.Now().UTC().Truncate(time.Microsecond)
	entry.CreatedAt = &created

	var end interface{}
	if entry.End != nil {
		end = *entry.End
	}
	const q = `INSERT INTO activity_logs (id, activity, start_at, end_at, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, entry.ID, entry.Activity, entry.Start, end, created); err != nil {
		return domain.LogEntry{}, err
	}
	return entry, nil
}

// ListLogs returns entries in creation order.
func (c *Client) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, activity, start_at, end_at, created_at FROM activity_logs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var (
			e       domain.LogEntry
			end     sql.NullTime
			created time.Time
		)
		if err := rows.Scan(&e.ID, &e.Activity, &e.Start, &end, &created); err != nil {
			return nil, err
		}
		if end.Valid {
			t := end.Time
			e.End = &t
		}
		e.CreatedAt = &created
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteLogs removes the given ids, or every row when ids is empty.
func (c *Client) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	q := `DELETE FROM activity_logs`
	args := make([]interface{}, 0, len(ids))
	if len(ids) > 0 {
		q += ` WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.log.Debug("mysql deleted logs", slog.Int64("count", n))
	return int(n), nil
}

// InsertActivity stores a name.
func (c *Client) InsertActivity(ctx context.Context, name string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO activities (name) VALUES (?)`, name)
	return err
}

// ListActivities returns all names.
func (c *Client) ListActivities(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM activities ORDER BY id`)
	if err != nil {
		return nil, err
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

// Ping checks connectivity; used by the fallback store before re-promotion.
func (c *Client) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

// Close closes the underlying DB.
func (c *Client) Close() error { return c.db.Close() }
