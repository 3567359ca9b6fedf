// Package tasks keeps the in-memory snapshot of a user's tasks and time entries and
// routes every mutation through the backend before the snapshot changes.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

var (
	ErrInvalidTask  = errors.New("invalid task")
	ErrInvalidEntry = errors.New("invalid time entry")
	ErrTaskNotFound = errors.New("task not found")
)

// Backend is the remote Task and Time Entry store.
type Backend interface {
	ListTasks(ctx context.Context, userID string) ([]store.Task, error)
	CreateTask(ctx context.Context, t store.Task) (*store.Task, error)
	UpdateTask(ctx context.Context, t store.Task) (*store.Task, error)
	DeleteTask(ctx context.Context, userID string, id int64) error
	AddTimeEntry(ctx context.Context, e store.TimeEntry) (*store.TimeEntry, error)

	ListFolders(ctx context.Context, userID string) ([]store.Folder, error)
	CreateFolder(ctx context.Context, userID, name string) (*store.Folder, error)
	RenameFolder(ctx context.Context, userID, id, name string) error
	DeleteFolder(ctx context.Context, userID, id string) error
}

// Draft holds the user-editable fields of a task. A zero Points takes the size's points.
type Draft struct {
	Title       string
	Size        store.Size
	Points      int
	Priority    store.Priority
	DueDate     *time.Time
	Folder      string
	Description string
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if store.PointsForSize(d.Size) == 0 {
		return fmt.Errorf("%w: unknown size %q", ErrInvalidTask, d.Size)
	}
	if d.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrInvalidTask)
	}
	return nil
}

func (d Draft) points() int {
	if d.Points > 0 {
		return d.Points
	}
	return store.PointsForSize(d.Size)
}

// ManualEntry is time logged by hand, either as hours and minutes or as a
// From-To wall-clock range on Date.
type ManualEntry struct {
	Date    time.Time
	Hours   int
	Minutes int
	From    string
	To      string
}

// RangeMode reports whether the entry was given as a clock range.
func (m ManualEntry) RangeMode() bool {
	return m.From != "" || m.To != ""
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone used for entry dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

type Service struct {
	backend Backend
	userID  string
	log     *slog.Logger
	now     func() time.Time
	loc     *time.Location

	mu       sync.RWMutex
	tasks    []store.Task
	folders  []store.Folder
	onDelete []func(ctx context.Context, taskID int64) error
}

func New(backend Backend, userID string, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		userID:  userID,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserID returns the owner of the snapshot.
func (s *Service) UserID() string {
	return s.userID
}

// OnDelete registers a hook that runs before a task is deleted, e.g. to detach it from sprints.
func (s *Service) OnDelete(fn func(ctx context.Context, taskID int64) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// Refresh replaces the snapshot with the backend's current tasks and folders.
func (s *Service) Refresh(ctx context.Context) error {
	tasks, err := s.backend.ListTasks(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	folders, err := s.backend.ListFolders(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load folders: %w", err)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.folders = folders
	s.mu.Unlock()
	return nil
}

// refreshAfterWrite reloads the snapshot once a write is confirmed. A failed reload
// leaves the previous snapshot in place.
func (s *Service) refreshAfterWrite(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("refresh snapshot after write", "error", err)
	}
}

// Snapshot returns a copy of the current task list.
func (s *Service) Snapshot() []store.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Task looks a task up in the snapshot.
func (s *Service) Task(id int64) (store.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return store.Task{}, false
}

// Add validates d and creates the task.
func (s *Service) Add(ctx context.Context, d Draft) (*store.Task, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	created, err := s.backend.CreateTask(ctx, store.Task{
		UserID:      s.userID,
		Title:       strings.TrimSpace(d.Title),
		Size:        d.Size,
		Points:      d.points(),
		Priority:    d.Priority,
		DueDate:     d.DueDate,
		Folder:      strings.TrimSpace(d.Folder),
		Description: d.Description,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Debug("task created", "task_id", created.ID, "size", created.Size, "points", created.Points)
	s.refreshAfterWrite(ctx)
	return created, nil
}

// Edit replaces the editable fields of a task, keeping its completion state.
func (s *Service) Edit(ctx context.Context, id int64, d Draft) (*store.Task, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	t, ok := s.Task(id)
	if !ok {
		return nil, fmt.Errorf("edit task %d: %w", id, ErrTaskNotFound)
	}
	t.Title = strings.TrimSpace(d.Title)
	t.Size = d.Size
	t.Points = d.points()
	t.Priority = d.Priority
	t.DueDate = d.DueDate
	t.Folder = strings.TrimSpace(d.Folder)
	t.Description = d.Description
	return s.write(ctx, t)
}

// SetCompleted marks a task complete or incomplete.
func (s *Service) SetCompleted(ctx context.Context, id int64, completed bool) (*store.Task, error) {
	t, ok := s.Task(id)
	if !ok {
		return nil, fmt.Errorf("complete task %d: %w", id, ErrTaskNotFound)
	}
	t.Completed = completed
	return s.write(ctx, t)
}

// write stamps the completion time against the snapshot's copy and stores t.
// CompletedAt is set on the transition to complete, kept while the task stays
// complete and cleared otherwise.
func (s *Service) write(ctx context.Context, t store.Task) (*store.Task, error) {
	prev, _ := s.Task(t.ID)
	switch {
	case t.Completed && !prev.Completed:
		now := s.now()
		t.CompletedAt = &now
	case t.Completed:
		t.CompletedAt = prev.CompletedAt
		if t.CompletedAt == nil {
			now := s.now()
			t.CompletedAt = &now
		}
	default:
		t.CompletedAt = nil
	}

	updated, err := s.backend.UpdateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	s.refreshAfterWrite(ctx)
	return updated, nil
}

// Delete detaches the task through the registered hooks and removes it with its entries.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.RLock()
	hooks := append([]func(context.Context, int64) error(nil), s.onDelete...)
	s.mu.RUnlock()

	for _, fn := range hooks {
		if err := fn(ctx, id); err != nil {
			s.log.Warn("detach task before delete", "task_id", id, "error", err)
		}
	}
	if err := s.backend.DeleteTask(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	s.log.Debug("task deleted", "task_id", id)
	s.refreshAfterWrite(ctx)
	return nil
}

// AddManualEntry converts m into a time entry on the task.
func (s *Service) AddManualEntry(ctx context.Context, taskID int64, m ManualEntry) (*store.TimeEntry, error) {
	date := m.Date
	if date.IsZero() {
		date = s.now().In(s.loc)
	}
	date = timeutil.StartOfDay(date)

	var (
		start time.Time
		d     time.Duration
		err   error
	)
	if m.RangeMode() {
		start, d, err = timeutil.ClockRange(date, m.From, m.To)
	} else {
		d, err = timeutil.HoursMinutes(m.Hours, m.Minutes)
		start = date
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return s.addEntry(ctx, store.TimeEntry{
		TaskID:    taskID,
		Date:      timeutil.DayKey(date),
		Duration:  int64(d / time.Second),
		StartTime: start,
	})
}

// RecordEntry stores a timer session for today.
func (s *Service) RecordEntry(ctx context.Context, taskID int64, start time.Time, seconds int64) (*store.TimeEntry, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("%w: negative duration", ErrInvalidEntry)
	}
	return s.addEntry(ctx, store.TimeEntry{
		TaskID:    taskID,
		Date:      timeutil.DayKey(s.now().In(s.loc)),
		Duration:  seconds,
		StartTime: start,
	})
}

func (s *Service) addEntry(ctx context.Context, e store.TimeEntry) (*store.TimeEntry, error) {
	e.UserID = s.userID
	created, err := s.backend.AddTimeEntry(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("add time entry: %w", err)
	}
	s.log.Debug("time entry added", "task_id", e.TaskID, "seconds", e.Duration)
	s.refreshAfterWrite(ctx)
	return created, nil
}
