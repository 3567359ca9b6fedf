package goal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/localcache"
	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/store"
)

const testUser = "user-1"

var day0 = time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, version uint) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{DSN: ":memory:", SchemaVersion: version})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newLocal(t *testing.T) *persist.Local[Target] {
	t.Helper()
	c, err := localcache.NewMemory()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return persist.NewLocal[Target](c)
}

func newEngine(t *testing.T, repo Repository, caps store.Capabilities) *Engine {
	t.Helper()
	return newEngineWith(repo, newLocal(t), caps)
}

func newEngineWith(repo Repository, local *persist.Local[Target], caps store.Capabilities) *Engine {
	return New(repo, local, testUser, caps, WithClock(func() time.Time { return day0 }))
}

// offlineRepo rejects every write.
type offlineRepo struct {
	*store.Store
}

var errOffline = errors.New("offline")

func (offlineRepo) DeactivateGoals(context.Context, string, string, int, time.Time) error {
	return errOffline
}

func (offlineRepo) ActiveGoal(context.Context, string, string) (*store.Goal, error) {
	return nil, errOffline
}

// ============================================================
// Progress and scope
// ============================================================

func TestProgress(t *testing.T) {
	tasks := []store.Task{
		{ID: 1, Points: 3, Completed: true},
		{ID: 2, Points: 5},
		{ID: 3, Points: 8, Completed: true},
	}
	if got := Progress(tasks, nil); got != 11 {
		t.Fatalf("general progress = %d, want 11", got)
	}
	sp := &store.Sprint{TaskIDs: []int64{2, 3, 99}}
	if got := Progress(tasks, sp); got != 8 {
		t.Fatalf("sprint progress = %d, want 8", got)
	}
	if got := len(ScopeTasks(tasks, sp)); got != 2 {
		t.Fatalf("scope drops unknown ids, got %d tasks", got)
	}
}

func TestNeedsConfirmation(t *testing.T) {
	tests := []struct {
		value, reference int
		want             bool
	}{
		{12, 10, false},
		{13, 10, true},
		{100, 0, false},
		{5, 10, false},
	}
	for _, tt := range tests {
		if got := NeedsConfirmation(tt.value, tt.reference); got != tt.want {
			t.Errorf("NeedsConfirmation(%d, %d) = %v, want %v", tt.value, tt.reference, got, tt.want)
		}
	}
}

// ============================================================
// Achievement
// ============================================================

func TestAchievementFiresOnce(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()

	if _, err := e.SetGoal(ctx, GeneralContext, 10, 0, 8); err != nil {
		t.Fatal(err)
	}

	var fired []*Achievement
	for _, progress := range []int{9, 10, 12} {
		a, err := e.Check(ctx, GeneralContext, progress)
		if err != nil {
			t.Fatal(err)
		}
		if a != nil {
			fired = append(fired, a)
		}
	}
	if len(fired) != 1 || fired[0].Progress != 10 || fired[0].Target != 10 {
		t.Fatalf("achievements = %+v, want one at progress 10", fired)
	}

	g, err := st.ActiveGoal(ctx, testUser, GeneralContext)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Achieved || g.AchievedAt == nil || !g.AchievedAt.Equal(day0) {
		t.Fatalf("achievement not stored: %+v", g)
	}

	// A reloaded engine sees the stored achievement and stays quiet.
	again := newEngine(t, st, st.Capabilities())
	if a, err := again.Check(ctx, GeneralContext, 15); err != nil || a != nil {
		t.Fatalf("reloaded Check = %+v, %v", a, err)
	}
}

func TestNewGoalRearmsAchievement(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()

	if _, err := e.SetGoal(ctx, GeneralContext, 5, 0, 0); err != nil {
		t.Fatal(err)
	}
	if a, _ := e.Check(ctx, GeneralContext, 5); a == nil {
		t.Fatal("first goal should be achieved")
	}
	if _, err := e.SetGoal(ctx, GeneralContext, 8, 5, 5); err != nil {
		t.Fatal(err)
	}
	if a, _ := e.Check(ctx, GeneralContext, 7); a != nil {
		t.Fatal("8 is not reached at 7")
	}
	if a, _ := e.Check(ctx, GeneralContext, 8); a == nil {
		t.Fatal("second goal should be achieved")
	}
}

func TestContextsAreIndependent(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()
	sprintCtx := SprintContext("s1")

	if _, err := e.SetGoal(ctx, GeneralContext, 20, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SetGoal(ctx, sprintCtx, 5, 0, 0); err != nil {
		t.Fatal(err)
	}

	general, err := e.Load(ctx, GeneralContext)
	if err != nil {
		t.Fatal(err)
	}
	sprint, err := e.Load(ctx, sprintCtx)
	if err != nil {
		t.Fatal(err)
	}
	if general.Target != 20 || sprint.Target != 5 {
		t.Fatalf("targets = %d / %d, want 20 / 5", general.Target, sprint.Target)
	}
	if a, _ := e.Check(ctx, sprintCtx, 6); a == nil || a.Context != sprintCtx {
		t.Fatalf("sprint achievement = %+v", a)
	}
	if a, _ := e.Check(ctx, GeneralContext, 6); a != nil {
		t.Fatal("general goal is not reached")
	}
}

func TestSetGoalRejectsNonPositive(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	if _, err := e.SetGoal(context.Background(), GeneralContext, 0, 0, 0); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestSetGoalFallsBackToLocal(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, offlineRepo{st}, st.Capabilities())
	ctx := context.Background()

	s, err := e.SetGoal(ctx, GeneralContext, 7, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Local || s.Goal != nil {
		t.Fatalf("expected a local goal, got %+v", s)
	}

	loaded, err := e.Load(ctx, GeneralContext)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Local || loaded.Target != 7 {
		t.Fatalf("local goal not loaded: %+v", loaded)
	}
	if a, _ := e.Check(ctx, GeneralContext, 7); a == nil || a.GoalID != "" {
		t.Fatalf("local achievement = %+v", a)
	}
	if a, _ := e.Check(ctx, GeneralContext, 9); a != nil {
		t.Fatal("local achievement fired twice")
	}
}

func TestLocalAchievementSurvivesRestart(t *testing.T) {
	st := newStore(t, 0)
	local := newLocal(t)
	ctx := context.Background()

	first := newEngineWith(offlineRepo{st}, local, st.Capabilities())
	if _, err := first.SetGoal(ctx, GeneralContext, 7, 0, 0); err != nil {
		t.Fatal(err)
	}
	if a, err := first.Check(ctx, GeneralContext, 7); err != nil || a == nil {
		t.Fatalf("first Check = %+v, %v", a, err)
	}

	rec, err := local.Get(ctx, persist.Key{UserID: testUser, Purpose: "goal", Qualifier: GeneralContext})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Value != 7 || !rec.Achieved || rec.AchievedAt == nil || !rec.AchievedAt.Equal(day0) {
		t.Fatalf("stored local target = %+v", rec)
	}

	second := newEngineWith(offlineRepo{st}, local, st.Capabilities())
	if a, err := second.Check(ctx, GeneralContext, 8); err != nil || a != nil {
		t.Fatalf("achievement announced again after restart: %+v, %v", a, err)
	}
	loaded, err := second.Load(ctx, GeneralContext)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Local || !loaded.Achieved || loaded.Target != 7 {
		t.Fatalf("reloaded status = %+v", loaded)
	}

	// Setting the target again starts a fresh goal.
	if _, err := second.SetGoal(ctx, GeneralContext, 7, 8, 0); err != nil {
		t.Fatal(err)
	}
	if a, _ := second.Check(ctx, GeneralContext, 9); a == nil {
		t.Fatal("a new local goal should be achievable")
	}
}

func TestRemoteGoalReplacesLocalTarget(t *testing.T) {
	st := newStore(t, 0)
	local := newLocal(t)
	ctx := context.Background()

	if _, err := newEngineWith(offlineRepo{st}, local, st.Capabilities()).SetGoal(ctx, GeneralContext, 7, 0, 0); err != nil {
		t.Fatal(err)
	}
	online := newEngineWith(st, local, st.Capabilities())
	s, err := online.SetGoal(ctx, GeneralContext, 12, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Local || s.Goal == nil || s.Goal.ID == "" || s.Goal.Value != 12 {
		t.Fatalf("expected a remote goal, got %+v", s)
	}
	key := persist.Key{UserID: testUser, Purpose: "goal", Qualifier: GeneralContext}
	if _, err := local.Get(ctx, key); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("local target should be dropped once stored remotely, got %v", err)
	}
}

func TestSingleContextMode(t *testing.T) {
	st := newStore(t, 1)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()

	if !e.SingleContext() {
		t.Fatal("schema v1 has no goal contexts")
	}
	if _, err := e.SetGoal(ctx, SprintContext("s1"), 9, 0, 0); err != nil {
		t.Fatal(err)
	}
	s, err := e.Load(ctx, GeneralContext)
	if err != nil {
		t.Fatal(err)
	}
	if s.Target != 9 || s.Context != GeneralContext {
		t.Fatalf("sprint goal should collapse into general: %+v", s)
	}
}

// ============================================================
// Suggestions
// ============================================================

func achieve(t *testing.T, st *store.Store, goalCtx string, value int, at time.Time) {
	t.Helper()
	ctx := context.Background()
	g, err := st.InsertGoal(ctx, store.Goal{UserID: testUser, Context: goalCtx, Value: value, Active: true, CreatedAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.MarkGoalAchieved(ctx, testUser, g.ID, value, at); err != nil {
		t.Fatal(err)
	}
	if err := st.DeactivateGoals(ctx, testUser, goalCtx, value, at); err != nil {
		t.Fatal(err)
	}
}

func TestSuggestFromHistory(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()

	achieve(t, st, GeneralContext, 100, day0.AddDate(0, 0, -4))
	achieve(t, st, GeneralContext, 10, day0.AddDate(0, 0, -3))
	achieve(t, st, GeneralContext, 11, day0.AddDate(0, 0, -2))
	achieve(t, st, GeneralContext, 13, day0.AddDate(0, 0, -1))
	achieve(t, st, SprintContext("a"), 4, day0.AddDate(0, 0, -2))
	achieve(t, st, SprintContext("b"), 7, day0.AddDate(0, 0, -1))

	got, err := e.Suggest(ctx, GeneralContext, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 11 {
		t.Fatalf("general suggestion = %d, want round((10+11+13)/3) = 11", got)
	}

	got, err = e.Suggest(ctx, SprintContext("c"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Fatalf("sprint suggestion = %d, want round((4+7)/2) = 6", got)
	}
}

func TestSuggestColdStart(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	scope := []store.Task{{Points: 8}, {Points: 5}, {Points: 2, Completed: true}}

	got, err := e.Suggest(context.Background(), GeneralContext, scope)
	if err != nil {
		t.Fatal(err)
	}
	if got != 11 {
		t.Fatalf("cold start = %d, want round(0.7*15) = 11", got)
	}
}

// ============================================================
// Streaks
// ============================================================

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 15, 0, 0, 0, time.UTC)
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name             string
		dates            []time.Time
		today            time.Time
		current, longest int
	}{
		{"none", nil, jan(5), 0, 0},
		{"gap before today", []time.Time{jan(1), jan(2), jan(3), jan(5)}, jan(5), 1, 3},
		{"ends yesterday", []time.Time{jan(1), jan(2), jan(3)}, jan(4), 3, 3},
		{"stale", []time.Time{jan(1), jan(2)}, jan(5), 0, 2},
		{"same day twice", []time.Time{jan(4), jan(4).Add(time.Hour), jan(5)}, jan(5), 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := Streaks(tt.dates, tt.today)
			if current != tt.current || longest != tt.longest {
				t.Fatalf("Streaks = %d/%d, want %d/%d", current, longest, tt.current, tt.longest)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	st := newStore(t, 0)
	e := newEngine(t, st, st.Capabilities())
	ctx := context.Background()

	achieve(t, st, GeneralContext, 5, jan(3))
	achieve(t, st, SprintContext("a"), 5, jan(4))
	if _, err := st.InsertGoal(ctx, store.Goal{UserID: testUser, Context: GeneralContext, Value: 9, Active: true}); err != nil {
		t.Fatal(err)
	}

	s, err := e.Summary(ctx, jan(5))
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{Total: 3, Achieved: 2, GeneralAchieved: 1, SprintAchieved: 1, CurrentStreak: 2, LongestStreak: 2}
	if s != want {
		t.Fatalf("Summary = %+v, want %+v", s, want)
	}
}
