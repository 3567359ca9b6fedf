// Package goal tracks point goals per context: one active goal each for general work
// and for every sprint, with achievement detection, suggestions and streaks.
package goal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/store"
)

const (
	GeneralContext = "general"
	sprintPrefix   = "sprint_"

	// HighTargetFactor is how far above the reference a new target may go before it
	// needs confirmation.
	HighTargetFactor = 1.2
	// ColdStartFactor scales the in-scope points when there is no goal history.
	ColdStartFactor = 0.7
	// VelocityWindow is the number of achieved goals averaged into a suggestion.
	VelocityWindow = 3
)

var ErrInvalidTarget = errors.New("goal target must be greater than zero")

// SprintContext returns the goal context of a sprint.
func SprintContext(sprintID string) string {
	return sprintPrefix + sprintID
}

// IsSprintContext reports whether c belongs to a sprint.
func IsSprintContext(c string) bool {
	return strings.HasPrefix(c, sprintPrefix)
}

// Repository is the remote goal_points table.
type Repository interface {
	ActiveGoal(ctx context.Context, userID, goalCtx string) (*store.Goal, error)
	DeactivateGoals(ctx context.Context, userID, goalCtx string, pointsAtEnd int, at time.Time) error
	InsertGoal(ctx context.Context, g store.Goal) (*store.Goal, error)
	MarkGoalAchieved(ctx context.Context, userID, id string, pointsAtEnd int, at time.Time) error
	ListGoals(ctx context.Context, userID string, f store.GoalFilter) ([]store.Goal, error)
}

// Status is the goal currently in force for a context.
type Status struct {
	Context  string
	Goal     *store.Goal // nil when the target only exists on this device
	Target   int
	Local    bool
	Achieved bool
}

// instance identifies the goal for one-time achievement detection.
func (s Status) instance() string {
	if s.Goal != nil {
		return s.Goal.ID
	}
	return fmt.Sprintf("local:%s:%d", s.Context, s.Target)
}

// Target is the stored form of a context's target. A target kept only on this
// device records its own achievement so a later process does not announce it again.
type Target struct {
	Value      int        `json:"value"`
	Achieved   bool       `json:"achieved,omitempty"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`

	goal       *store.Goal // remote row, filled by reads and successful writes
	progress   int
	suggestion int
}

// Achievement is emitted once when a goal's target is first reached.
type Achievement struct {
	Context  string
	GoalID   string
	Target   int
	Progress int
	At       time.Time
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
	repo    Repository
	local   persist.Backend[Target]
	targets *persist.Fallback[Target]
	userID  string
	caps   store.Capabilities
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	status   map[string]Status
	notified map[string]bool
}

// New builds an engine. Without the goal context capability every context collapses
// into the general one.
func New(repo Repository, local persist.Backend[Target], userID string, caps store.Capabilities, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		local:    local,
		userID:   userID,
		caps:     caps,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		status:   make(map[string]Status),
		notified: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.targets = &persist.Fallback[Target]{Remote: e.remote(), Local: local, Log: e.log}
	return e
}

// remote exposes the active goal of a context as a persist backend. Writes replace
// the active goal; the inserted row is copied into Target.goal when it is set.
func (e *Engine) remote() persist.Backend[Target] {
	return persist.Funcs[Target]{
		PutFunc: func(ctx context.Context, key persist.Key, t Target) error {
			g, err := e.replaceGoal(ctx, key.Qualifier, t.Value, t.progress, t.suggestion, e.now())
			if err != nil {
				return err
			}
			if t.goal != nil {
				*t.goal = *g
			}
			return nil
		},
		GetFunc: func(ctx context.Context, key persist.Key) (Target, error) {
			g, err := e.repo.ActiveGoal(ctx, e.userID, key.Qualifier)
			if errors.Is(err, store.ErrNotFound) {
				return Target{}, persist.ErrNotFound
			}
			if err != nil {
				return Target{}, err
			}
			return Target{Value: g.Value, Achieved: g.Achieved, AchievedAt: g.AchievedAt, goal: g}, nil
		},
	}
}

// SingleContext reports whether the backend only supports one goal context.
func (e *Engine) SingleContext() bool {
	return !e.caps.GoalContext
}

func (e *Engine) resolve(goalCtx string) string {
	if goalCtx == "" || !e.caps.GoalContext {
		return GeneralContext
	}
	return goalCtx
}

func (e *Engine) localKey(goalCtx string) persist.Key {
	return persist.Key{UserID: e.userID, Purpose: "goal", Qualifier: goalCtx}
}

// ScopeTasks returns the tasks a context covers: every task for the general context,
// or the tasks listed by the sprint. Ids without a task are dropped.
func ScopeTasks(tasks []store.Task, sprint *store.Sprint) []store.Task {
	if sprint == nil {
		return tasks
	}
	byID := make(map[int64]store.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var out []store.Task
	for _, id := range sprint.TaskIDs {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Progress sums the points of completed tasks in scope.
func Progress(tasks []store.Task, sprint *store.Sprint) int {
	total := 0
	for _, t := range ScopeTasks(tasks, sprint) {
		if t.Completed {
			total += t.Points
		}
	}
	return total
}

// NeedsConfirmation reports whether value exceeds the reference by more than 20%.
// A reference of zero never asks.
func NeedsConfirmation(value, reference int) bool {
	return reference > 0 && float64(value) > float64(reference)*HighTargetFactor
}

// Load reads the active goal of a context, falling back to the device-local target.
func (e *Engine) Load(ctx context.Context, goalCtx string) (Status, error) {
	goalCtx = e.resolve(goalCtx)
	st := Status{Context: goalCtx}

	t, src, err := e.targets.GetFrom(ctx, e.localKey(goalCtx))
	switch {
	case err == nil:
		st.Goal = t.goal
		st.Target = t.Value
		st.Achieved = t.Achieved
		st.Local = src == persist.SourceLocal
	case !errors.Is(err, persist.ErrNotFound):
		return Status{}, fmt.Errorf("load goal %s: %w", goalCtx, err)
	}

	e.mu.Lock()
	e.status[goalCtx] = st
	if st.Achieved {
		e.notified[st.instance()] = true
	}
	e.mu.Unlock()
	return st, nil
}

// Current returns the last loaded status of a context without touching storage.
func (e *Engine) Current(goalCtx string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.status[e.resolve(goalCtx)]
	return st, ok
}

// SetGoal replaces the context's active goal with a new target. progress is the
// points reached so far and suggestion the value proposed to the user. If the backend
// rejects the change the target is kept on this device and the status is marked Local.
func (e *Engine) SetGoal(ctx context.Context, goalCtx string, value, progress, suggestion int) (Status, error) {
	if value <= 0 {
		return Status{}, ErrInvalidTarget
	}
	goalCtx = e.resolve(goalCtx)

	st := Status{Context: goalCtx, Target: value}
	t := Target{Value: value, goal: &store.Goal{}, progress: progress, suggestion: suggestion}
	src, err := e.targets.PutFrom(ctx, e.localKey(goalCtx), t)
	if err != nil {
		return Status{}, fmt.Errorf("store goal %s: %w", goalCtx, err)
	}
	if src == persist.SourceLocal {
		st.Local = true
	} else {
		st.Goal = t.goal
	}

	e.mu.Lock()
	e.status[goalCtx] = st
	delete(e.notified, st.instance())
	e.mu.Unlock()
	e.log.Info("goal set", "context", goalCtx, "target", value, "local", st.Local)
	return st, nil
}

func (e *Engine) replaceGoal(ctx context.Context, goalCtx string, value, progress, suggestion int, now time.Time) (*store.Goal, error) {
	if err := e.repo.DeactivateGoals(ctx, e.userID, goalCtx, progress, now); err != nil {
		return nil, err
	}
	return e.repo.InsertGoal(ctx, store.Goal{
		UserID:         e.userID,
		Context:        goalCtx,
		Value:          value,
		SuggestedValue: suggestion,
		PointsAtStart:  progress,
		Active:         true,
		CreatedAt:      now,
	})
}

// Check compares progress with the context's target and returns an Achievement the
// first time the target is reached. It returns nil on every later call for the same goal.
func (e *Engine) Check(ctx context.Context, goalCtx string, progress int) (*Achievement, error) {
	goalCtx = e.resolve(goalCtx)

	e.mu.Lock()
	st, ok := e.status[goalCtx]
	e.mu.Unlock()
	if !ok {
		var err error
		if st, err = e.Load(ctx, goalCtx); err != nil {
			return nil, err
		}
	}

	if st.Target <= 0 || st.Achieved || progress < st.Target {
		return nil, nil
	}
	if st.Goal != nil && !st.Goal.Active {
		return nil, nil
	}

	e.mu.Lock()
	key := st.instance()
	if e.notified[key] {
		e.mu.Unlock()
		return nil, nil
	}
	e.notified[key] = true
	st.Achieved = true
	if st.Goal != nil {
		g := *st.Goal
		g.Achieved = true
		st.Goal = &g
	}
	e.status[goalCtx] = st
	e.mu.Unlock()

	now := e.now()
	ach := &Achievement{Context: goalCtx, Target: st.Target, Progress: progress, At: now}
	switch {
	case st.Goal != nil:
		ach.GoalID = st.Goal.ID
		if err := e.repo.MarkGoalAchieved(ctx, e.userID, st.Goal.ID, progress, now); err != nil {
			e.log.Error("record goal achievement", "goal_id", st.Goal.ID, "error", err)
		}
	case st.Local:
		rec := Target{Value: st.Target, Achieved: true, AchievedAt: &now}
		if err := e.local.Put(ctx, e.localKey(goalCtx), rec); err != nil {
			e.log.Error("record local goal achievement", "context", goalCtx, "error", err)
		}
	}
	e.log.Info("goal achieved", "context", goalCtx, "target", st.Target, "progress", progress)
	return ach, nil
}

// Suggest proposes a target: the rounded average of the last achieved goals of the
// same kind (general or any sprint), or 70% of the in-scope points without history.
func (e *Engine) Suggest(ctx context.Context, goalCtx string, scope []store.Task) (int, error) {
	goalCtx = e.resolve(goalCtx)
	f := store.GoalFilter{Achieved: true, Limit: VelocityWindow}
	if IsSprintContext(goalCtx) {
		f.SprintOnly = true
	} else {
		f.Context = goalCtx
	}

	goals, err := e.repo.ListGoals(ctx, e.userID, f)
	if err != nil {
		e.log.Warn("load goal history, using cold start", "context", goalCtx, "error", err)
		goals = nil
	}
	if len(goals) > 0 {
		sum := 0
		for _, g := range goals {
			sum += g.Value
		}
		return int(math.Round(float64(sum) / float64(len(goals)))), nil
	}

	total := 0
	for _, t := range scope {
		total += t.Points
	}
	return int(math.Round(float64(total) * ColdStartFactor)), nil
}
