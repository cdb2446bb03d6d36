//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	msql "activity-tracker/internal/adapter/mysql"
	"activity-tracker/internal/adapter/storetest"
	"activity-tracker/internal/ports"
	"activity-tracker/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "tracker",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start mysql container")
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("test:pass@tcp(%s:%s)/tracker", host, port.Port())
}

func TestMySQLStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	dsn := startMySQL(t)
	ctx := context.Background()

	raw, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	storetest.Run(t, func(t *testing.T) ports.Store {
		client, err := msql.NewClient(ctx, dsn, testLogger())
		require.NoError(t, err)
		for _, table := range []string{"activity_logs", "activities"} {
			_, err := raw.ExecContext(ctx, "DELETE FROM "+table)
			require.NoError(t, err)
		}
		t.Cleanup(func() { client.Close() })
		return client
	})

	t.Run("MigrationsAreIdempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			client, err := msql.NewClient(ctx, dsn, testLogger())
			require.NoError(t, err)
			require.NoError(t, client.Close())
		}
		var versions int
		require.NoError(t, raw.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
		require.Equal(t, 1, versions)
	})

	t.Run("LogServiceDayFilter", func(t *testing.T) {
		client, err := msql.NewClient(ctx, dsn, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		_, err = client.DeleteLogs(ctx, nil)
		require.NoError(t, err)

		svc := usecase.NewLogService(testLogger(), client, nil, time.UTC, 5*time.Second)
		start := time.Date(2025, 8, 1, 23, 30, 0, 0, time.UTC)
		_, err = svc.AddLog(ctx, "Late", start, start.Add(20*time.Minute))
		require.NoError(t, err)
		_, err = svc.AddLog(ctx, "Next", start.Add(time.Hour), start.Add(90*time.Minute))
		require.NoError(t, err)

		logs, err := svc.ListLogs(ctx, "2025-08-01")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Equal(t, "Late", logs[0].Activity)
	})
}
