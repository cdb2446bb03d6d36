package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"activity-tracker/internal/domain"
	"activity-tracker/internal/observability"
	"activity-tracker/internal/ports"
)

// DefaultPublishTimeout bounds a change event publish when PublishTimeout is unset.
const DefaultPublishTimeout = 2 * time.Second

// LogService mediates every read and write of log entries and activity names.
// Change events are published on their own deadline, detached from the
// caller's, so a slow broker never eats into the store budget.
type LogService struct {
	Log            *slog.Logger
	Store          ports.Store
	Events         ports.EventPublisher
	Location       *time.Location
	Timeout        time.Duration
	PublishTimeout time.Duration
	Now            func() time.Time
}

// NewLogService builds a LogService with defaults for the optional fields.
func NewLogService(log *slog.Logger, store ports.Store, events ports.EventPublisher, loc *time.Location, timeout time.Duration) *LogService {
	if events == nil {
		events = ports.NoopPublisher{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &LogService{
		Log:            log,
		Store:          store,
		Events:         events,
		Location:       loc,
		Timeout:        timeout,
		PublishTimeout: DefaultPublishTimeout,
		Now:            time.Now,
	}
}

func (s *LogService) ready() error {
	if s.Store == nil {
		return errors.New("log service not initialized: missing store")
	}
	return nil
}

func (s *LogService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *LogService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ListLogs returns entries ordered by start descending. A non-empty filterDate
// (YYYY-MM-DD) keeps only entries that started on that day in s.Location.
func (s *LogService) ListLogs(ctx context.Context, filterDate string) ([]domain.LogEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	day, err := domain.ParseDay(filterDate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	entries, err := s.Store.ListLogs(ctx)
	observability.RecordStoreOp("list_logs", err)
	if err != nil {
		return nil, storeErr("list logs", err)
	}

	out := make([]domain.LogEntry, 0, len(entries))
	for _, e := range entries {
		if day == "" || e.OnDay(day, s.Location) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

// AddLog validates and persists a completed interval.
func (s *LogService) AddLog(ctx context.Context, activity string, start, end time.Time) (domain.LogEntry, error) {
	if err := s.ready(); err != nil {
		return domain.LogEntry{}, err
	}
	entry, err := domain.NewLogEntry(activity, start, end)
	if err != nil {
		return domain.LogEntry{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	saved, err := s.Store.InsertLog(ctx, entry)
	observability.RecordStoreOp("insert_log", err)
	if err != nil {
		return domain.LogEntry{}, storeErr("insert log", err)
	}
	observability.RecordLogPersisted()
	s.Log.Info("log recorded", slog.String("id", saved.ID), slog.String("activity", saved.Activity),
		slog.Duration("duration", saved.Duration(s.now())))

	s.publish(ctx, domain.Event{Type: domain.EventLogCreated, OccurredAt: s.now().UTC(), Log: &saved})
	return saved, nil
}

// DeleteLogs removes the given ids, or every entry when ids is empty.
func (s *LogService) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	requested := len(ids)
	ids = compactIDs(ids)
	if requested > 0 && len(ids) == 0 {
		// Only blank ids were sent; that is not a request to clear everything.
		return 0, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.Store.DeleteLogs(ctx, ids)
	observability.RecordStoreOp("delete_logs", err)
	if err != nil {
		return 0, storeErr("delete logs", err)
	}
	s.Log.Info("logs deleted", slog.Int("requested", len(ids)), slog.Int("deleted", n))

	s.publish(ctx, domain.Event{Type: domain.EventLogsDeleted, OccurredAt: s.now().UTC(), IDs: ids, Deleted: n})
	return n, nil
}

// AddActivity registers a new activity name unless one already exists under
// case-insensitive comparison.
func (s *LogService) AddActivity(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := domain.NormalizeActivityName(name)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	existing, err := s.Store.ListActivities(ctx)
	observability.RecordStoreOp("list_activities", err)
	if err != nil {
		return storeErr("list activities", err)
	}
	for _, n := range existing {
		if strings.EqualFold(n, name) {
			return fmt.Errorf("%w: %q", domain.ErrDuplicate, name)
		}
	}

	err = s.Store.InsertActivity(ctx, name)
	observability.RecordStoreOp("insert_activity", err)
	if err != nil {
		return storeErr("insert activity", err)
	}
	s.Log.Info("activity added", slog.String("name", name))

	s.publish(ctx, domain.Event{Type: domain.EventActivityCreated, OccurredAt: s.now().UTC(), Activity: name})
	return nil
}

// ListActivities returns every registered name sorted case-insensitively.
func (s *LogService) ListActivities(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	names, err := s.Store.ListActivities(ctx)
	observability.RecordStoreOp("list_activities", err)
	if err != nil {
		return nil, storeErr("list activities", err)
	}
	sort.SliceStable(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names, nil
}

// Summary aggregates the entries of one day. Extra entries (a running timer
// session, for example) are included in the totals but never persisted.
func (s *LogService) Summary(ctx context.Context, day string, metric domain.Metric, extra ...domain.LogEntry) ([]domain.SummaryRow, error) {
	if day == "" {
		day = s.now().In(s.Location).Format(domain.DateLayout)
	}
	entries, err := s.ListLogs(ctx, day)
	if err != nil {
		return nil, err
	}
	for _, e := range extra {
		if e.OnDay(day, s.Location) {
			entries = append(entries, e)
		}
	}
	return domain.Summarize(entries, metric, s.now()), nil
}

func (s *LogService) publish(ctx context.Context, ev domain.Event) {
	timeout := s.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.Warn("publish change event failed", slog.String("type", string(ev.Type)), slog.String("error", err.Error()))
	}
}

func storeErr(op string, err error) error {
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
