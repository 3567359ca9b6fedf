// Package app wires the engines together and runs the follow-up work a mutation
// needs: goal checks and the daily report refresh.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/config"
	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/localcache"
	"github.com/eddielimmm/my-agile-plus/internal/notify"
	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/report"
	"github.com/eddielimmm/my-agile-plus/internal/sprint"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timer"
)

type App struct {
	Store   *store.Store
	Cache   *localcache.Cache
	Tasks   *tasks.Service
	Timer   *timer.Timer
	Sprints *sprint.Engine
	Goals   *goal.Engine
	Reports *report.Service
	Notices *notify.Tracker

	userID string
	loc    *time.Location
	log    *slog.Logger
	now    func() time.Time
}

// Options tunes New. Zero values pick the defaults.
type Options struct {
	UserID   string
	Location *time.Location
	Log      *slog.Logger
	Now      func() time.Time
	// TickInterval overrides the timer's one-second tick.
	TickInterval time.Duration
}

// Open connects the backend and the local cache described by cfg.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Backend.Driver,
		DSN:           cfg.Backend.DSN,
		SchemaVersion: cfg.Backend.SchemaVersion,
		Log:           log,
	})
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	cache, err := localcache.New(cfg.Cache.Path)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	return New(st, cache, Options{UserID: cfg.UserID, Location: cfg.Location(), Log: log}), nil
}

// New builds the engines over an open store and cache. The App owns both and
// closes them in Close.
func New(st *store.Store, cache *localcache.Cache, opts Options) *App {
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		Store:  st,
		Cache:  cache,
		userID: opts.UserID,
		loc:    opts.Location,
		log:    opts.Log,
		now:    opts.Now,
	}
	a.Tasks = tasks.New(st, opts.UserID,
		tasks.WithClock(opts.Now), tasks.WithLocation(opts.Location), tasks.WithLogger(opts.Log.With("component", "tasks")))
	a.Sprints = sprint.New(st, opts.UserID,
		sprint.WithClock(opts.Now), sprint.WithLogger(opts.Log.With("component", "sprint")))
	a.Goals = goal.New(st, persist.NewLocal[goal.Target](cache), opts.UserID, st.Capabilities(),
		goal.WithClock(opts.Now), goal.WithLogger(opts.Log.With("component", "goal")))
	a.Reports = report.New(report.Remote(st), persist.NewLocal[store.Report](cache), opts.UserID,
		opts.Location, opts.Log.With("component", "report"), report.WithClock(opts.Now))
	a.Notices = notify.NewTracker(persist.NewLocal[bool](cache), opts.UserID)

	timerOpts := []timer.Option{timer.WithClock(opts.Now), timer.WithLogger(opts.Log.With("component", "timer"))}
	if opts.TickInterval > 0 {
		timerOpts = append(timerOpts, timer.WithTickInterval(opts.TickInterval))
	}
	a.Timer = timer.New(recorder{a}, timerOpts...)

	a.Tasks.OnDelete(a.Sprints.DetachTask)
	return a
}

// recorder stores timer sessions and refreshes today's report afterwards.
type recorder struct {
	app *App
}

func (r recorder) RecordEntry(ctx context.Context, taskID int64, start time.Time, seconds int64) (*store.TimeEntry, error) {
	e, err := r.app.Tasks.RecordEntry(ctx, taskID, start, seconds)
	if err != nil {
		return nil, err
	}
	r.app.RefreshReport(ctx)
	return e, nil
}

func (a *App) UserID() string           { return a.userID }
func (a *App) Location() *time.Location { return a.loc }
func (a *App) Now() time.Time           { return a.now().In(a.loc) }

// Close stops the timer without recording and closes the stores.
func (a *App) Close() error {
	a.Timer.Close()
	cacheErr := a.Cache.Close()
	if err := a.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Refresh reloads tasks and sprints and the goals of the general and current sprint contexts.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.Tasks.Refresh(ctx); err != nil {
		return err
	}
	if err := a.Sprints.Refresh(ctx); err != nil {
		return err
	}
	for _, c := range a.GoalContexts() {
		if _, err := a.Goals.Load(ctx, c); err != nil {
			a.log.Warn("load goal", "context", c, "error", err)
		}
	}
	return nil
}

// GoalContexts returns the general context plus the current sprint's, if any.
func (a *App) GoalContexts() []string {
	out := []string{goal.GeneralContext}
	if sp, ok := a.Sprints.Current(); ok && !a.Goals.SingleContext() {
		out = append(out, goal.SprintContext(sp.ID))
	}
	return out
}

// sprintFor resolves a goal context to its sprint. ok is false for the general context.
func (a *App) sprintFor(goalCtx string) (*store.Sprint, bool, error) {
	if !goal.IsSprintContext(goalCtx) || a.Goals.SingleContext() {
		return nil, false, nil
	}
	id := strings.TrimPrefix(goalCtx, "sprint_")
	sp, ok := a.Sprints.Sprint(id)
	if !ok {
		return nil, true, fmt.Errorf("goal context %s: %w", goalCtx, sprint.ErrSprintNotFound)
	}
	return &sp, true, nil
}

// GoalScope returns the tasks a goal context covers and the points completed in it.
func (a *App) GoalScope(goalCtx string) ([]store.Task, int, error) {
	sp, _, err := a.sprintFor(goalCtx)
	if err != nil {
		return nil, 0, err
	}
	all := a.Tasks.Snapshot()
	return goal.ScopeTasks(all, sp), goal.Progress(all, sp), nil
}

// SuggestGoal proposes a target for goalCtx.
func (a *App) SuggestGoal(ctx context.Context, goalCtx string) (int, error) {
	scope, _, err := a.GoalScope(goalCtx)
	if err != nil {
		return 0, err
	}
	return a.Goals.Suggest(ctx, goalCtx, scope)
}

// SetGoal replaces the goal of goalCtx with value. Front ends ask the user first when
// goal.NeedsConfirmation(value, suggestion) holds.
func (a *App) SetGoal(ctx context.Context, goalCtx string, value int) (goal.Status, error) {
	_, progress, err := a.GoalScope(goalCtx)
	if err != nil {
		return goal.Status{}, err
	}
	suggestion, err := a.SuggestGoal(ctx, goalCtx)
	if err != nil {
		return goal.Status{}, err
	}
	st, err := a.Goals.SetGoal(ctx, goalCtx, value, progress, suggestion)
	if err != nil {
		return goal.Status{}, err
	}
	if _, err := a.Goals.Check(ctx, goalCtx, progress); err != nil {
		a.log.Warn("check new goal", "context", goalCtx, "error", err)
	}
	return st, nil
}

// CheckGoals evaluates every loaded context against the current snapshot.
func (a *App) CheckGoals(ctx context.Context) []goal.Achievement {
	var out []goal.Achievement
	for _, c := range a.GoalContexts() {
		_, progress, err := a.GoalScope(c)
		if err != nil {
			a.log.Warn("goal scope", "context", c, "error", err)
			continue
		}
		ach, err := a.Goals.Check(ctx, c, progress)
		if err != nil {
			a.log.Warn("check goal", "context", c, "error", err)
			continue
		}
		if ach != nil {
			out = append(out, *ach)
		}
	}
	return out
}

// RefreshReport rebuilds today's report snapshot. It never fails the caller.
func (a *App) RefreshReport(ctx context.Context) store.Report {
	return a.Reports.Refresh(ctx, a.Tasks.Snapshot(), a.Now())
}

// SetCompleted changes a task's completion and returns any goal achievements it caused.
func (a *App) SetCompleted(ctx context.Context, taskID int64, completed bool) (*store.Task, []goal.Achievement, error) {
	t, err := a.Tasks.SetCompleted(ctx, taskID, completed)
	if err != nil {
		return nil, nil, err
	}
	var achievements []goal.Achievement
	if completed {
		achievements = a.CheckGoals(ctx)
	}
	a.RefreshReport(ctx)
	return t, achievements, nil
}

// EditTask replaces a task's fields. Points of a completed task count towards goals,
// so goals are checked again.
func (a *App) EditTask(ctx context.Context, taskID int64, d tasks.Draft) (*store.Task, []goal.Achievement, error) {
	t, err := a.Tasks.Edit(ctx, taskID, d)
	if err != nil {
		return nil, nil, err
	}
	achievements := a.CheckGoals(ctx)
	a.RefreshReport(ctx)
	return t, achievements, nil
}

// AddManualEntry logs time by hand and refreshes the report.
func (a *App) AddManualEntry(ctx context.Context, taskID int64, m tasks.ManualEntry) (*store.TimeEntry, error) {
	e, err := a.Tasks.AddManualEntry(ctx, taskID, m)
	if err != nil {
		return nil, err
	}
	a.RefreshReport(ctx)
	return e, nil
}

// DeleteTask detaches the task from its sprints, deletes it and refreshes the
// report. A running session of the task is dropped unrecorded.
func (a *App) DeleteTask(ctx context.Context, taskID int64) error {
	if st := a.Timer.State(); st.Active && st.TaskID == taskID {
		a.Timer.Close()
	}
	if err := a.Tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	a.RefreshReport(ctx)
	return nil
}

// Reminders returns due-soon reminders and how many of them are unread.
func (a *App) Reminders(ctx context.Context) ([]notify.Reminder, int, error) {
	due := notify.DueSoon(a.Tasks.Snapshot(), a.Now())
	unread, err := a.Notices.Unread(ctx, due)
	if err != nil {
		return due, 0, err
	}
	return due, len(unread), nil
}
