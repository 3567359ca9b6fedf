// Package timer runs the single active work timer and turns each session into a
// time entry when it stops.
package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

var ErrInvalidTask = errors.New("timer: invalid task id")

// Recorder persists a finished session.
type Recorder interface {
	RecordEntry(ctx context.Context, taskID int64, start time.Time, seconds int64) (*store.TimeEntry, error)
}

// State is a snapshot of the timer.
type State struct {
	TaskID    int64
	Active    bool
	StartedAt time.Time
	Elapsed   int64 // seconds shown to the user
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickInterval changes how often the elapsed counter advances.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Timer) { t.log = log }
}

type Timer struct {
	rec      Recorder
	log      *slog.Logger
	now      func() time.Time
	interval time.Duration

	mu     sync.Mutex
	state  State
	banked int64 // seconds carried over when the active task is started again
	cancel context.CancelFunc
	done   chan struct{}
}

func New(rec Recorder, opts ...Option) *Timer {
	t := &Timer{
		rec:      rec,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins tracking taskID. Starting the task that is already active resumes it
// without losing elapsed time. Starting a different task stops and records the
// current one first.
func (t *Timer) Start(ctx context.Context, taskID int64) error {
	if taskID <= 0 {
		return ErrInvalidTask
	}

	t.mu.Lock()
	if t.state.Active && t.state.TaskID == taskID {
		t.banked = t.state.Elapsed
		t.state.StartedAt = t.now()
		t.mu.Unlock()
		t.log.Debug("timer resumed", "task_id", taskID, "elapsed", t.banked)
		return nil
	}
	switching := t.state.Active
	t.mu.Unlock()

	if switching {
		if _, err := t.Stop(ctx); err != nil {
			t.log.Error("record previous session", "error", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{TaskID: taskID, Active: true, StartedAt: t.now()}
	t.banked = 0
	t.startTicker()
	t.log.Debug("timer started", "task_id", taskID)
	return nil
}

// Stop ends the session and records it for today. The timer is reset even when
// recording fails; the error is returned to the caller.
func (t *Timer) Stop(ctx context.Context) (*store.TimeEntry, error) {
	t.mu.Lock()
	if !t.state.Active {
		t.mu.Unlock()
		return nil, nil
	}
	st, banked := t.state, t.banked
	t.state = State{}
	t.banked = 0
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	stopTicker(cancel, done)

	seconds := int64(t.now().Sub(st.StartedAt)/time.Second) + banked
	if seconds < 0 {
		seconds = 0
	}
	entry, err := t.rec.RecordEntry(ctx, st.TaskID, st.StartedAt, seconds)
	if err != nil {
		t.log.Error("record timer session", "task_id", st.TaskID, "seconds", seconds, "error", err)
		return nil, err
	}
	t.log.Debug("timer stopped", "task_id", st.TaskID, "seconds", seconds)
	return entry, nil
}

// Close stops the tick without recording anything.
func (t *Timer) Close() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.state = State{}
	t.banked = 0
	t.mu.Unlock()

	stopTicker(cancel, done)
}

// Tick advances the elapsed counter of the active session by one second.
func (t *Timer) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Active {
		t.state.Elapsed++
	}
}

// Elapsed returns the seconds shown for taskID, or 0 when it is not the active task.
func (t *Timer) Elapsed(taskID int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Active || t.state.TaskID != taskID {
		return 0
	}
	return t.state.Elapsed
}

// State returns a copy of the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Active reports whether a session is running.
func (t *Timer) Active() bool {
	return t.State().Active
}

// startTicker must be called with t.mu held.
func (t *Timer) startTicker() {
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel, t.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Tick()
			}
		}
	}()
}

func stopTicker(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
