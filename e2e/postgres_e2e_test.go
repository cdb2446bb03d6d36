//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"activity-tracker/internal/adapter/postgres"
	"activity-tracker/internal/adapter/storetest"
	"activity-tracker/internal/ports"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("tracker"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	url, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	raw, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(raw.Close)

	storetest.Run(t, func(t *testing.T) ports.Store {
		repo, err := postgres.Open(ctx, url, testLogger())
		require.NoError(t, err)
		_, err = raw.Exec(ctx, "TRUNCATE activity_logs, activities")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})

	t.Run("DeleteIgnoresMalformedIDs", func(t *testing.T) {
		repo, err := postgres.Open(ctx, url, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })

		n, err := repo.DeleteLogs(ctx, []string{"not-a-uuid"})
		require.NoError(t, err)
		require.Equal(t, 0, n)
	})
}
