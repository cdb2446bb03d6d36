package lazy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-tracker/internal/adapter/memory"
	"activity-tracker/internal/ports"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpensOnFirstUseOnly(t *testing.T) {
	opens := 0
	s := New("memory", func(context.Context) (ports.Store, error) {
		opens++
		return memory.NewStore(), nil
	}, discard())
	assert.Equal(t, 0, opens)

	ctx := context.Background()
	require.NoError(t, s.InsertActivity(ctx, "Reading"))
	names, err := s.ListActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reading"}, names)
	assert.Equal(t, 1, opens)
}

func TestRetriesAfterFailedOpen(t *testing.T) {
	fail := true
	s := New("flaky", func(context.Context) (ports.Store, error) {
		if fail {
			return nil, errors.New("dial tcp: connection refused")
		}
		return memory.NewStore(), nil
	}, discard())

	ctx := context.Background()
	_, err := s.ListLogs(ctx)
	require.Error(t, err)
	require.Error(t, s.Ping(ctx))

	fail = false
	_, err = s.ListLogs(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
}

func TestCloseBeforeOpen(t *testing.T) {
	s := New("memory", func(context.Context) (ports.Store, error) {
		t.Fatal("open should not be called")
		return nil, nil
	}, discard())
	require.NoError(t, s.Close())

	_, err := s.ListLogs(context.Background())
	assert.ErrorIs(t, err, errClosed)
}
