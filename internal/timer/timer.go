// Package timer holds the single live tracking session.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"activity-tracker/internal/domain"
)

// State is the machine state.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
)

// Recorder persists a finished session.
type Recorder interface {
	AddLog(ctx context.Context, activity string, start, end time.Time) (domain.LogEntry, error)
}

// Tick is the live readout emitted while running.
type Tick struct {
	Activity string
	Elapsed  time.Duration
}

// Snapshot is a point-in-time view of the machine.
type Snapshot struct {
	State     State         `json:"state"`
	Activity  string        `json:"activity,omitempty"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	Elapsed   time.Duration `json:"-"`
	Stopping  bool          `json:"stopping"`
}

// Options configures a Machine. Zero values pick defaults.
type Options struct {
	Tick    time.Duration
	Timeout time.Duration
	OnTick  func(Tick)
	Now     func() time.Time
}

// Machine is a two-state timer: Idle or Running(activity, startedAt).
type Machine struct {
	recorder Recorder
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
	onTick   func(Tick)
	now      func() time.Time

	mu        sync.Mutex
	activity  string
	startedAt time.Time
	running   bool
	stopping  bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New returns an idle Machine that records finished sessions via rec.
func New(rec Recorder, log *slog.Logger, opts Options) *Machine {
	m := &Machine{
		recorder: rec,
		log:      log,
		interval: opts.Tick,
		timeout:  opts.Timeout,
		onTick:   opts.OnTick,
		now:      opts.Now,
	}
	if m.interval <= 0 {
		m.interval = time.Second
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Start begins a session for activity.
func (m *Machine) Start(activity string) (Snapshot, error) {
	name, err := domain.NormalizeActivityName(activity)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return m.snapshotLocked(), fmt.Errorf("%w: %s", domain.ErrAlreadyRunning, m.activity)
	}
	m.activity = name
	m.startedAt = m.now()
	m.running = true
	m.startTicker()
	m.log.Info("timer started", slog.String("activity", name), slog.Time("started_at", m.startedAt))
	return m.snapshotLocked(), nil
}

// Stop ends the running session and hands it to the recorder. If recording
// fails the session keeps running and the error is returned.
func (m *Machine) Stop(ctx context.Context) (domain.LogEntry, error) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return domain.LogEntry{}, domain.ErrNotRunning
	}
	if m.stopping {
		m.mu.Unlock()
		return domain.LogEntry{}, domain.ErrStopInFlight
	}
	m.stopping = true
	activity, start := m.activity, m.startedAt
	end := m.now()
	m.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	entry, err := m.recorder.AddLog(rctx, activity, start, end)
	cancel()

	m.mu.Lock()
	m.stopping = false
	if err != nil {
		m.mu.Unlock()
		m.log.Warn("timer stop failed, session kept", slog.String("activity", activity), slog.String("error", err.Error()))
		return domain.LogEntry{}, err
	}
	m.running = false
	m.activity = ""
	m.startedAt = time.Time{}
	done := m.stopTicker()
	m.mu.Unlock()

	<-done
	m.log.Info("timer stopped", slog.String("activity", activity), slog.Duration("elapsed", end.Sub(start)))
	return entry, nil
}

// Snapshot reports the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Provisional returns the running session as an open log entry.
func (m *Machine) Provisional() (domain.LogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return domain.LogEntry{}, false
	}
	return domain.LogEntry{Activity: m.activity, Start: m.startedAt}, true
}

// Shutdown stops the ticker without recording; the session is discarded.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.stopTicker()
	m.mu.Unlock()
	<-done
}

func (m *Machine) snapshotLocked() Snapshot {
	if !m.running {
		return Snapshot{State: Idle}
	}
	started := m.startedAt
	return Snapshot{
		State:     Running,
		Activity:  m.activity,
		StartedAt: &started,
		Elapsed:   m.now().Sub(started),
		Stopping:  m.stopping,
	}
}

func (m *Machine) startTicker() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	activity, start := m.activity, m.startedAt

	go func() {
		defer close(done)
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if ctx.Err() != nil {
					return
				}
				if m.onTick != nil {
					m.onTick(Tick{Activity: activity, Elapsed: m.now().Sub(start)})
				}
			}
		}
	}()
}

func (m *Machine) stopTicker() chan struct{} {
	if m.cancel == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	m.cancel()
	done := m.done
	m.cancel, m.done = nil, nil
	return done
}
