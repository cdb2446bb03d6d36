// Package storetest holds the behaviour every ports.Store implementation must share.
package storetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/ports"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) ports.Store

func newEntry(t *testing.T, activity string, start time.Time, minutes int) domain.LogEntry {
	t.Helper()
	e, err := domain.NewLogEntry(activity, start, start.Add(time.Duration(minutes)*time.Minute))
	require.NoError(t, err)
	return e
}

// Run executes the contract suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

	t.Run("InsertAssignsIDAndCreatedAt", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		saved, err := store.InsertLog(ctx, newEntry(t, "Coding", start, 30))
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		require.NotNil(t, saved.CreatedAt)

		other, err := store.InsertLog(ctx, newEntry(t, "Coding", start, 30))
		require.NoError(t, err)
		assert.NotEqual(t, saved.ID, other.ID)
	})

	t.Run("InsertedTimesMatchListedTimes", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		precise := start.Add(123456789 * time.Nanosecond)
		saved, err := store.InsertLog(ctx, newEntry(t, "Writing", precise, 10))
		require.NoError(t, err)

		got, err := store.ListLogs(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, saved.Start.Equal(got[0].Start), "start %s != %s", saved.Start, got[0].Start)
		require.NotNil(t, got[0].End)
		assert.True(t, saved.End.Equal(*got[0].End), "end %s != %s", saved.End, got[0].End)
	})

	t.Run("ListReturnsInsertedFields", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		want := newEntry(t, "Reading", start, 45)
		saved, err := store.InsertLog(ctx, want)
		require.NoError(t, err)

		got, err := store.ListLogs(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, saved.ID, got[0].ID)
		assert.Equal(t, "Reading", got[0].Activity)
		assert.True(t, want.Start.Equal(got[0].Start), "start %s != %s", want.Start, got[0].Start)
		require.NotNil(t, got[0].End)
		assert.True(t, want.End.Equal(*got[0].End), "end %s != %s", want.End, got[0].End)
	})

	t.Run("DeleteSelectedIgnoresUnknown", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		var ids []string
		for i := 0; i < 3; i++ {
			saved, err := store.InsertLog(ctx, newEntry(t, "A", start.Add(time.Duration(i)*time.Hour), 10))
			require.NoError(t, err)
			ids = append(ids, saved.ID)
		}

		n, err := store.DeleteLogs(ctx, []string{ids[0], ids[2], "does-not-exist"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := store.ListLogs(ctx)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, ids[1], left[0].ID)
	})

	t.Run("DeleteAll", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			_, err := store.InsertLog(ctx, newEntry(t, "A", start, 5))
			require.NoError(t, err)
		}
		n, err := store.DeleteLogs(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := store.ListLogs(ctx)
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("Activities", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		require.NoError(t, store.InsertActivity(ctx, "Reading"))
		require.NoError(t, store.InsertActivity(ctx, "Coding"))

		names, err := store.ListActivities(ctx)
		require.NoError(t, err)
		sort.Strings(names)
		assert.Equal(t, []string{"Coding", "Reading"}, names)
	})
}
