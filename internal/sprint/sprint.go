// Package sprint manages date-bounded sprints, their task lists and the current selection.
package sprint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

var (
	ErrOverlap        = errors.New("the date range overlaps with an existing sprint")
	ErrInvalidSprint  = errors.New("invalid sprint")
	ErrSprintNotFound = errors.New("sprint not found")
)

// Repository is the remote sprint store.
type Repository interface {
	ListSprints(ctx context.Context, userID string) ([]store.Sprint, error)
	OverlappingSprints(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]store.Sprint, error)
	CreateSprint(ctx context.Context, sp store.Sprint) (*store.Sprint, error)
	UpdateSprint(ctx context.Context, sp store.Sprint) error
	SetSprintTasks(ctx context.Context, userID, sprintID string, taskIDs []int64) error
	DeleteSprint(ctx context.Context, userID, id string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

type Engine struct {
	repo   Repository
	userID string
	log    *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sprints  []store.Sprint
	selected string
}

func New(repo Repository, userID string, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		userID: userID,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func validate(name string, start, end time.Time) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSprint)
	}
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidSprint)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidSprint)
	}
	return nil
}

// Refresh reloads every sprint and reselects the current one.
func (e *Engine) Refresh(ctx context.Context) error {
	sprints, err := e.repo.ListSprints(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("load sprints: %w", err)
	}
	e.mu.Lock()
	e.sprints = sprints
	e.mu.Unlock()
	e.SelectCurrent()
	return nil
}

func (e *Engine) refreshAfterWrite(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil {
		e.log.Warn("refresh sprints after write", "error", err)
	}
}

// SelectCurrent selects the first sprint whose range contains now. Without one the
// previous selection is kept as long as that sprint still exists.
func (e *Engine) SelectCurrent() {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sp := range e.sprints {
		if sp.Contains(now) {
			e.selected = sp.ID
			return
		}
	}
	if e.indexLocked(e.selected) < 0 {
		e.selected = ""
	}
}

// Select makes id the current sprint.
func (e *Engine) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexLocked(id) < 0 {
		return fmt.Errorf("select sprint %s: %w", id, ErrSprintNotFound)
	}
	e.selected = id
	return nil
}

// Current returns the selected sprint.
func (e *Engine) Current() (store.Sprint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexLocked(e.selected); i >= 0 {
		return e.sprints[i], true
	}
	return store.Sprint{}, false
}

// Sprints returns every sprint by ascending start date.
func (e *Engine) Sprints() []store.Sprint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.sprints)
}

// Sprint looks a sprint up by id.
func (e *Engine) Sprint(id string) (store.Sprint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexLocked(id); i >= 0 {
		return e.sprints[i], true
	}
	return store.Sprint{}, false
}

func (e *Engine) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(e.sprints, func(sp store.Sprint) bool { return sp.ID == id })
}

// Tasks returns the sprint's tasks in list order, skipping ids with no task.
func Tasks(sp store.Sprint, tasks []store.Task) []store.Task {
	byID := make(map[int64]store.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var out []store.Task
	for _, id := range sp.TaskIDs {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Create inserts a sprint unless its range overlaps an existing one.
func (e *Engine) Create(ctx context.Context, name string, start, end time.Time) (*store.Sprint, error) {
	if err := validate(name, start, end); err != nil {
		return nil, err
	}
	conflicts, err := e.repo.OverlappingSprints(ctx, e.userID, start, end, "")
	if err != nil {
		return nil, fmt.Errorf("check sprint overlap: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrOverlap, conflicts[0].Name)
	}

	sp, err := e.repo.CreateSprint(ctx, store.Sprint{
		UserID:    e.userID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create sprint: %w", err)
	}
	e.log.Info("sprint created", "sprint_id", sp.ID, "name", sp.Name)
	e.refreshAfterWrite(ctx)
	return sp, nil
}

// Update changes a sprint's name and dates. The new range must not overlap another sprint.
func (e *Engine) Update(ctx context.Context, sp store.Sprint) error {
	if err := validate(sp.Name, sp.StartDate, sp.EndDate); err != nil {
		return err
	}
	conflicts, err := e.repo.OverlappingSprints(ctx, e.userID, sp.StartDate, sp.EndDate, sp.ID)
	if err != nil {
		return fmt.Errorf("check sprint overlap: %w", err)
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %q", ErrOverlap, conflicts[0].Name)
	}
	sp.UserID = e.userID
	if err := e.repo.UpdateSprint(ctx, sp); err != nil {
		return fmt.Errorf("update sprint: %w", err)
	}
	e.refreshAfterWrite(ctx)
	return nil
}

// Delete removes a sprint. Its tasks are kept.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.repo.DeleteSprint(ctx, e.userID, id); err != nil {
		return fmt.Errorf("delete sprint: %w", err)
	}
	e.mu.Lock()
	if e.selected == id {
		e.selected = ""
	}
	e.mu.Unlock()
	e.log.Info("sprint deleted", "sprint_id", id)
	e.refreshAfterWrite(ctx)
	return nil
}

// AddTasks appends ids to the sprint's list, skipping ones already present.
func (e *Engine) AddTasks(ctx context.Context, sprintID string, ids ...int64) error {
	sp, ok := e.Sprint(sprintID)
	if !ok {
		return fmt.Errorf("add tasks to sprint %s: %w", sprintID, ErrSprintNotFound)
	}
	list := slices.Clone(sp.TaskIDs)
	for _, id := range ids {
		if !slices.Contains(list, id) {
			list = append(list, id)
		}
	}
	if len(list) == len(sp.TaskIDs) {
		return nil
	}
	return e.setTasks(ctx, sprintID, list)
}

// RemoveTask drops taskID from the sprint. Absent ids are a no-op.
func (e *Engine) RemoveTask(ctx context.Context, taskID int64, sprintID string) error {
	sp, ok := e.Sprint(sprintID)
	if !ok {
		return fmt.Errorf("remove task from sprint %s: %w", sprintID, ErrSprintNotFound)
	}
	if !sp.HasTask(taskID) {
		return nil
	}
	list := slices.DeleteFunc(slices.Clone(sp.TaskIDs), func(id int64) bool { return id == taskID })
	return e.setTasks(ctx, sprintID, list)
}

// DetachTask removes taskID from every sprint that lists it.
func (e *Engine) DetachTask(ctx context.Context, taskID int64) error {
	var errs []error
	for _, sp := range e.Sprints() {
		if !sp.HasTask(taskID) {
			continue
		}
		list := slices.DeleteFunc(slices.Clone(sp.TaskIDs), func(id int64) bool { return id == taskID })
		if err := e.repo.SetSprintTasks(ctx, e.userID, sp.ID, list); err != nil {
			errs = append(errs, fmt.Errorf("detach task %d from sprint %s: %w", taskID, sp.ID, err))
		}
	}
	e.refreshAfterWrite(ctx)
	return errors.Join(errs...)
}

func (e *Engine) setTasks(ctx context.Context, sprintID string, ids []int64) error {
	if err := e.repo.SetSprintTasks(ctx, e.userID, sprintID, ids); err != nil {
		return fmt.Errorf("set sprint tasks: %w", err)
	}
	e.log.Debug("sprint tasks updated", "sprint_id", sprintID, "tasks", len(ids))
	e.refreshAfterWrite(ctx)
	return nil
}
