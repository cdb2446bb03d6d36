package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-tracker/internal/adapter/memory"
	"activity-tracker/internal/domain"
	"activity-tracker/internal/observability"
	"activity-tracker/internal/ports"
)

type recordingPublisher struct {
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.events = append(p.events, e)
	return p.err
}

// countingStore counts writes so tests can assert none happened.
type countingStore struct {
	ports.Store
	inserts int
}

func (c *countingStore) InsertLog(ctx context.Context, e domain.LogEntry) (domain.LogEntry, error) {
	c.inserts++
	return c.Store.InsertLog(ctx, e)
}

type failingStore struct{ *memory.Store }

func (failingStore) InsertLog(context.Context, domain.LogEntry) (domain.LogEntry, error) {
	return domain.LogEntry{}, errors.New("dial tcp 10.0.0.1:3306: i/o timeout")
}

func newService(store ports.Store, pub ports.EventPublisher) *LogService {
	return NewLogService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, pub, time.UTC, time.Second)
}

var day = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

func TestAddLogRejectsMissingFieldsWithoutWriting(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	svc := newService(store, nil)
	ctx := context.Background()
	start := day.Add(10 * time.Hour)

	cases := []struct {
		name       string
		activity   string
		start, end time.Time
	}{
		{"empty activity", "", start, start.Add(time.Minute)},
		{"blank activity", "   ", start, start.Add(time.Minute)},
		{"missing start", "A", time.Time{}, start},
		{"missing end", "A", start, time.Time{}},
		{"end before start", "A", start, start.Add(-time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddLog(ctx, tc.activity, tc.start, tc.end)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, 0, store.inserts)
}

func TestAddLogThenListContainsEntry(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(memory.NewStore(), pub)
	ctx := context.Background()
	start := day.Add(9 * time.Hour)
	before := testutil.ToFloat64(observability.LogsRecorded())

	_, err := svc.AddLog(ctx, "Reading", start.Add(-time.Hour), start)
	require.NoError(t, err)
	saved, err := svc.AddLog(ctx, "Coding", start, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	logs, err := svc.ListLogs(ctx, "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Coding", logs[0].Activity, "sorted by start descending")
	assert.True(t, logs[0].Start.Equal(start))
	assert.True(t, logs[0].End.Equal(start.Add(30*time.Minute)))

	assert.Equal(t, before+2, testutil.ToFloat64(observability.LogsRecorded()))
	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.EventLogCreated, pub.events[1].Type)
	assert.Equal(t, saved.ID, pub.events[1].Log.ID)
}

func TestListLogsFiltersByDayInLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	svc := newService(memory.NewStore(), nil)
	svc.Location = berlin
	ctx := context.Background()

	// 23:30 UTC on Aug 1 is already Aug 2 in Berlin.
	late := time.Date(2025, 8, 1, 23, 30, 0, 0, time.UTC)
	_, err = svc.AddLog(ctx, "Late", late, late.Add(10*time.Minute))
	require.NoError(t, err)

	logs, err := svc.ListLogs(ctx, "2025-08-01")
	require.NoError(t, err)
	assert.Empty(t, logs)
	logs, err = svc.ListLogs(ctx, "2025-08-02")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = svc.ListLogs(ctx, "Aug 2")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteLogs(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(memory.NewStore(), pub)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		start := day.Add(time.Duration(8+i) * time.Hour)
		e, err := svc.AddLog(ctx, "A", start, start.Add(time.Minute))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	n, err := svc.DeleteLogs(ctx, []string{ids[1], ids[3], "unknown", " "})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	logs, err := svc.ListLogs(ctx, "")
	require.NoError(t, err)
	got := []string{logs[0].ID, logs[1].ID}
	assert.ElementsMatch(t, []string{ids[0], ids[2]}, got)

	n, err = svc.DeleteLogs(ctx, []string{"", "  "})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "blank ids never clear the store")

	n, err = svc.DeleteLogs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	logs, err = svc.ListLogs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, logs)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, domain.EventLogsDeleted, last.Type)
	assert.Equal(t, 2, last.Deleted)
}

func TestAddActivityIsCaseInsensitiveUnique(t *testing.T) {
	svc := newService(memory.NewStore(), nil)
	ctx := context.Background()

	require.NoError(t, svc.AddActivity(ctx, "Reading"))
	err := svc.AddActivity(ctx, "reading")
	require.ErrorIs(t, err, domain.ErrDuplicate)
	require.ErrorIs(t, svc.AddActivity(ctx, " "), domain.ErrValidation)
	require.NoError(t, svc.AddActivity(ctx, "  coding "))

	names, err := svc.ListActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"coding", "Reading"}, names)
}

func TestStoreFailuresAreStoreErrors(t *testing.T) {
	svc := newService(failingStore{memory.NewStore()}, nil)

	_, err := svc.AddLog(context.Background(), "A", day, day.Add(time.Minute))
	require.ErrorIs(t, err, domain.ErrStore)
	var se *domain.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert log", se.Op)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(memory.NewStore(), pub)

	require.NoError(t, svc.AddActivity(context.Background(), "Reading"))
	assert.Len(t, pub.events, 1)
}

// deadlinePublisher captures the context state seen by Publish.
type deadlinePublisher struct {
	err      error
	deadline time.Time
}

func (p *deadlinePublisher) Publish(ctx context.Context, _ domain.Event) error {
	p.err = ctx.Err()
	p.deadline, _ = ctx.Deadline()
	return nil
}

// expiringStore succeeds but returns only after the caller's deadline passed.
type expiringStore struct{ *memory.Store }

func (s expiringStore) InsertActivity(ctx context.Context, name string) error {
	<-ctx.Done()
	return s.Store.InsertActivity(context.Background(), name)
}

func TestPublishRunsOnItsOwnDeadline(t *testing.T) {
	pub := &deadlinePublisher{}
	svc := newService(expiringStore{memory.NewStore()}, pub)
	svc.Timeout = 20 * time.Millisecond
	svc.PublishTimeout = time.Minute

	require.NoError(t, svc.AddActivity(context.Background(), "Reading"))
	require.NoError(t, pub.err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), pub.deadline, 5*time.Second)
}

func TestSummaryIncludesExtraWithoutPersisting(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, nil)
	ctx := context.Background()
	now := day.Add(12 * time.Hour)
	svc.Now = func() time.Time { return now }

	_, err := svc.AddLog(ctx, "A", day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute))
	require.NoError(t, err)

	running := domain.LogEntry{Activity: "B", Start: now.Add(-15 * time.Minute)}
	rows, err := svc.Summary(ctx, "2025-08-01", domain.MetricDuration, running)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	totals := map[string]float64{}
	for _, r := range rows {
		totals[r.Activity] = r.Value
	}
	assert.Equal(t, map[string]float64{"A": 30, "B": 15}, totals)

	logs, err := store.ListLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	rows, err = svc.Summary(ctx, "", domain.MetricCount)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Value)
}
