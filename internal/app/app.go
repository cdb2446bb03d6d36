package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"activity-tracker/internal/adapter/fallback"
	"activity-tracker/internal/adapter/file"
	kafkafeed "activity-tracker/internal/adapter/kafka"
	"activity-tracker/internal/adapter/lazy"
	"activity-tracker/internal/adapter/memory"
	msql "activity-tracker/internal/adapter/mysql"
	"activity-tracker/internal/adapter/postgres"
	"activity-tracker/internal/adapter/sqlite"
	"activity-tracker/internal/config"
	"activity-tracker/internal/ports"
	"activity-tracker/internal/timer"
	"activity-tracker/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	cfg     config.Config
	store   ports.Store
	tiered  *fallback.Store
	events  ports.EventPublisher
	logs    *usecase.LogService
	timer   *timer.Machine
	closers []io.Closer
}

// New builds the store chain and publisher described by cfg. The primary
// store is not contacted until first use.
func New(log *slog.Logger, cfg config.Config) (*App, error) {
	primary := lazy.New(string(cfg.Store.Backend), func(ctx context.Context) (ports.Store, error) {
		return OpenStore(ctx, cfg.Store.Backend, cfg, log)
	}, log)

	var store ports.Store = primary
	if cfg.Store.Fallback != "" {
		secondary := lazy.New(string(cfg.Store.Fallback), func(ctx context.Context) (ports.Store, error) {
			return OpenStore(ctx, cfg.Store.Fallback, cfg, log)
		}, log)
		store = fallback.New(primary, secondary, log)
	}

	var events ports.EventPublisher = ports.NoopPublisher{}
	var closers []io.Closer
	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafkafeed.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		events = pub
		closers = append(closers, pub)
		log.Info("change feed enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	a := NewWithStore(log, cfg, store, events)
	a.closers = append(a.closers, closers...)
	return a, nil
}

// NewWithStore assembles an App around an already opened store.
func NewWithStore(log *slog.Logger, cfg config.Config, store ports.Store, events ports.EventPublisher) *App {
	a := &App{log: log, cfg: cfg, store: store, events: events}
	if t, ok := store.(*fallback.Store); ok {
		a.tiered = t
	}
	a.logs = usecase.NewLogService(log, store, events, cfg.Tracker.Location, cfg.Store.Timeout)
	a.timer = timer.New(a.logs, log, timer.Options{Tick: cfg.Tracker.Tick, Timeout: cfg.Store.Timeout})
	return a
}

// OpenStore connects to one backend. SQL backends apply migrations on open.
func OpenStore(ctx context.Context, backend config.Backend, cfg config.Config, log *slog.Logger) (ports.Store, error) {
	switch backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendFile:
		return file.NewStore(cfg.File.Path, log)
	case config.BackendMySQL:
		return msql.NewClient(ctx, cfg.MySQL.DSN, log)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Postgres.URL, log)
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLite.Path, log)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// Logs returns the log use case.
func (a *App) Logs() *usecase.LogService { return a.logs }

// Timer returns the live session machine.
func (a *App) Timer() *timer.Machine { return a.timer }

// Degraded reports whether the fallback store is serving requests.
func (a *App) Degraded() bool { return a.tiered != nil && a.tiered.Degraded() }

// Recover asks the two-tier store to re-promote its primary.
func (a *App) Recover(ctx context.Context) error {
	if a.tiered == nil {
		return errNoFallback
	}
	return a.tiered.Recover(ctx)
}

var errNoFallback = errors.New("no fallback store configured")

// Close stops the timer and releases the store and publisher.
func (a *App) Close() error {
	a.timer.Shutdown()
	errs := []error{a.store.Close()}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
