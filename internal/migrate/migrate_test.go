package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunSQLiteIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(ctx, SQLite, db, log))
	require.NoError(t, Run(ctx, SQLite, db, log))

	var versions int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)

	for _, table := range []string{"activity_logs", "activities"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestRunUnknownDialect(t *testing.T) {
	db := openSQLite(t)
	err := Run(context.Background(), Dialect("oracle"), db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	src := "-- header\nCREATE TABLE a (id INT);\n\n  -- note\nCREATE TABLE b (id INT);\n"
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, splitStatements(src))
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0007_add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = parseVersion("init.sql")
	assert.Error(t, err)
}
