package sprint

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

const testUser = "user-1"

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, testUser, WithClock(func() time.Time { return now })), st
}

func mustCreate(t *testing.T, e *Engine, name string, start, end time.Time) *store.Sprint {
	t.Helper()
	sp, err := e.Create(context.Background(), name, start, end)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return sp
}

func TestCreateRejectsOverlap(t *testing.T) {
	e, _ := newTestEngine(t, day(1, 1))
	ctx := context.Background()
	mustCreate(t, e, "A", day(1, 1), day(1, 14))

	if _, err := e.Create(ctx, "B", day(1, 10), day(1, 20)); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if len(e.Sprints()) != 1 {
		t.Fatal("an overlapping sprint must not be inserted")
	}

	mustCreate(t, e, "C", day(1, 15), day(1, 21))
	if len(e.Sprints()) != 2 {
		t.Fatalf("expected 2 sprints, got %d", len(e.Sprints()))
	}
}

func TestCreateValidation(t *testing.T) {
	e, _ := newTestEngine(t, day(1, 1))
	tests := []struct {
		name       string
		title      string
		start, end time.Time
	}{
		{"empty name", " ", day(1, 1), day(1, 2)},
		{"end before start", "x", day(1, 5), day(1, 2)},
		{"missing dates", "x", time.Time{}, day(1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Create(context.Background(), tt.title, tt.start, tt.end); !errors.Is(err, ErrInvalidSprint) {
				t.Fatalf("expected ErrInvalidSprint, got %v", err)
			}
		})
	}
}

func TestSelectCurrent(t *testing.T) {
	e, _ := newTestEngine(t, day(1, 16))
	mustCreate(t, e, "Past", day(1, 1), day(1, 14))
	now := mustCreate(t, e, "Now", day(1, 15), day(1, 28))

	cur, ok := e.Current()
	if !ok || cur.ID != now.ID {
		t.Fatalf("current = %+v, %v; want %s", cur, ok, now.Name)
	}
}

func TestSelectAndDelete(t *testing.T) {
	e, _ := newTestEngine(t, day(6, 1))
	ctx := context.Background()
	a := mustCreate(t, e, "A", day(1, 1), day(1, 14))

	if _, ok := e.Current(); ok {
		t.Fatal("no sprint contains today")
	}
	if err := e.Select(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if cur, ok := e.Current(); !ok || cur.ID != a.ID {
		t.Fatal("manual selection should survive a refresh")
	}
	if err := e.Select("missing"); !errors.Is(err, ErrSprintNotFound) {
		t.Fatalf("expected ErrSprintNotFound, got %v", err)
	}

	if err := e.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Current(); ok {
		t.Fatal("deleting the selected sprint clears the selection")
	}
}

func TestTaskMembership(t *testing.T) {
	e, _ := newTestEngine(t, day(1, 1))
	ctx := context.Background()
	a := mustCreate(t, e, "A", day(1, 1), day(1, 14))
	b := mustCreate(t, e, "B", day(1, 15), day(1, 28))

	if err := e.AddTasks(ctx, a.ID, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := e.AddTasks(ctx, a.ID, 2, 3, 1); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Sprint(a.ID)
	if !slices.Equal(got.TaskIDs, []int64{1, 2, 3}) {
		t.Fatalf("task ids = %v, want [1 2 3]", got.TaskIDs)
	}

	if err := e.RemoveTask(ctx, 2, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveTask(ctx, 42, a.ID); err != nil {
		t.Fatalf("removing an absent task is a no-op, got %v", err)
	}
	got, _ = e.Sprint(a.ID)
	if !slices.Equal(got.TaskIDs, []int64{1, 3}) {
		t.Fatalf("task ids = %v, want [1 3]", got.TaskIDs)
	}

	if err := e.AddTasks(ctx, b.ID, 3); err != nil {
		t.Fatal(err)
	}
	if err := e.DetachTask(ctx, 3); err != nil {
		t.Fatal(err)
	}
	for _, sp := range e.Sprints() {
		if sp.HasTask(3) {
			t.Fatalf("task 3 still in sprint %s", sp.Name)
		}
	}
}

func TestTasksDropsDanglingIDs(t *testing.T) {
	sp := store.Sprint{TaskIDs: []int64{5, 9, 1}}
	tasks := []store.Task{{ID: 1, Title: "one"}, {ID: 5, Title: "five"}}
	got := Tasks(sp, tasks)
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 1 {
		t.Fatalf("Tasks = %+v", got)
	}
}

func TestUpdateRejectsOverlap(t *testing.T) {
	e, _ := newTestEngine(t, day(1, 1))
	ctx := context.Background()
	mustCreate(t, e, "A", day(1, 1), day(1, 14))
	b := mustCreate(t, e, "B", day(1, 15), day(1, 28))

	b.StartDate = day(1, 10)
	if err := e.Update(ctx, *b); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	b.StartDate = day(1, 16)
	b.Name = "B2"
	if err := e.Update(ctx, *b); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Sprint(b.ID)
	if got.Name != "B2" {
		t.Fatalf("name = %q, want B2", got.Name)
	}
}
