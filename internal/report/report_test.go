package report

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

// deniedRepo refuses writes the way a backend without report permissions does.
type deniedRepo struct {
	*store.Store
}

func (deniedRepo) PutReport(context.Context, store.Report) error {
	return store.ErrPermissionDenied
}

func newDeps(t *testing.T) (*store.Store, *persist.Local[store.Report]) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	c, err := localcache.NewMemory()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return st, persist.NewLocal[store.Report](c)
}

func sampleTasks() []store.Task {
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	done := start.Add(2 * time.Hour)
	return []store.Task{{
		ID:          1,
		Size:        store.SizeM,
		Points:      3,
		Completed:   true,
		CompletedAt: &done,
		CreatedAt:   start,
		TimeEntries: []store.TimeEntry{{Date: "2024-03-04", Duration: 3600, StartTime: start}},
	}}
}

func TestRefreshStoresRemotely(t *testing.T) {
	st, local := newDeps(t)
	s := New(Remote(st), local, testUser, time.UTC, nil)
	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)

	r := s.Refresh(ctx, sampleTasks(), day)
	if r.PointsEarned != 3 || r.TotalTime != 3600 {
		t.Fatalf("unexpected report: %+v", r)
	}

	got, src, err := s.Get(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if src != persist.SourceRemote || got.CompletedTasks != 1 {
		t.Fatalf("Get = %+v from %s", got, src)
	}
}

func TestRefreshFallsBackToLocal(t *testing.T) {
	st, local := newDeps(t)
	s := New(Remote(deniedRepo{st}), local, testUser, time.UTC, nil)
	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)

	s.Refresh(ctx, sampleTasks(), day)

	got, src, err := s.Get(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if src != persist.SourceLocal || got.PointsEarned != 3 {
		t.Fatalf("Get = %+v from %s", got, src)
	}
	if _, err := local.Get(ctx, persist.Key{UserID: testUser, Purpose: "report", Qualifier: "2024-03-04"}); err != nil {
		t.Fatalf("local key not written: %v", err)
	}
}

func TestGetPrefersNewerSnapshot(t *testing.T) {
	st, local := newDeps(t)
	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)
	at := day
	clock := WithClock(func() time.Time { return at })

	online := New(Remote(st), local, testUser, time.UTC, nil, clock)
	offline := New(Remote(deniedRepo{st}), local, testUser, time.UTC, nil, clock)

	online.Refresh(ctx, sampleTasks(), day)
	at = at.Add(time.Hour)
	offline.Refresh(ctx, nil, day)

	got, src, err := online.Get(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if src != persist.SourceLocal || got.PointsEarned != 0 {
		t.Fatalf("stale remote snapshot won: %+v from %s", got, src)
	}

	at = at.Add(time.Hour)
	online.Refresh(ctx, sampleTasks(), day)
	got, src, err = offline.Get(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if src != persist.SourceRemote || got.PointsEarned != 3 {
		t.Fatalf("Get after remote refresh = %+v from %s", got, src)
	}
	key := persist.Key{UserID: testUser, Purpose: "report", Qualifier: "2024-03-04"}
	if _, err := local.Get(ctx, key); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("local snapshot should be dropped after a remote write, got %v", err)
	}
}

func TestRange(t *testing.T) {
	st, local := newDeps(t)
	s := New(Remote(st), local, testUser, time.UTC, nil)
	ctx := context.Background()

	d1 := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	d3 := d1.AddDate(0, 0, 2)
	s.Refresh(ctx, sampleTasks(), d1)
	s.Refresh(ctx, sampleTasks(), d3)

	got, err := s.Range(ctx, d1, d3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Date != "2024-03-04" || got[1].Date != "2024-03-06" {
		t.Fatalf("Range = %+v", got)
	}

	if _, _, err := s.Get(ctx, d1.AddDate(0, 0, 1)); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing day, got %v", err)
	}
}
