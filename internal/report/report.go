// Package report keeps daily report snapshots, stored remotely when the backend allows
// it and on the device otherwise.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/stats"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

const purpose = "report"

// Repository is the remote reports table.
type Repository interface {
	PutReport(ctx context.Context, r store.Report) error
	GetReport(ctx context.Context, userID, day string) (*store.Report, error)
}

// Remote adapts a Repository to a persist backend keyed by report day.
func Remote(repo Repository) persist.Backend[store.Report] {
	return persist.Funcs[store.Report]{
		PutFunc: func(ctx context.Context, _ persist.Key, r store.Report) error {
			return repo.PutReport(ctx, r)
		},
		GetFunc: func(ctx context.Context, key persist.Key) (store.Report, error) {
			r, err := repo.GetReport(ctx, key.UserID, key.Qualifier)
			if errors.Is(err, store.ErrNotFound) {
				return store.Report{}, persist.ErrNotFound
			}
			if err != nil {
				return store.Report{}, err
			}
			return *r, nil
		},
	}
}

type Service struct {
	backend *persist.Fallback[store.Report]
	userID  string
	loc     *time.Location
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for stamping snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service writing to remote and falling back to local. Reads return
// whichever stored snapshot was refreshed last.
func New(remote, local persist.Backend[store.Report], userID string, loc *time.Location, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		backend: &persist.Fallback[store.Report]{
			Remote: remote,
			Local:  local,
			Log:    log,
			Newer:  func(a, b store.Report) bool { return a.UpdatedAt.After(b.UpdatedAt) },
		},
		userID: userID,
		loc:    loc,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) key(day string) persist.Key {
	return persist.Key{UserID: s.userID, Purpose: purpose, Qualifier: day}
}

// Refresh rebuilds the snapshot for day from tasks and stores it. Failures are logged
// and never returned; the built report is returned either way.
func (s *Service) Refresh(ctx context.Context, tasks []store.Task, day time.Time) store.Report {
	r := stats.BuildReport(s.userID, tasks, day, s.loc)
	r.UpdatedAt = s.now()
	src, err := s.backend.PutFrom(ctx, s.key(r.Date), r)
	if err != nil {
		s.log.Error("store daily report", "date", r.Date, "error", err)
		return r
	}
	s.log.Debug("daily report stored", "date", r.Date, "source", src)
	return r
}

// Get returns the stored snapshot for day and where it came from.
func (s *Service) Get(ctx context.Context, day time.Time) (store.Report, persist.Source, error) {
	date := timeutil.DayKey(day.In(s.loc))
	r, src, err := s.backend.GetFrom(ctx, s.key(date))
	if err != nil {
		return store.Report{}, "", fmt.Errorf("get report %s: %w", date, err)
	}
	return r, src, nil
}

// Range returns the snapshots stored for each day in [from, to], skipping days without one.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]store.Report, error) {
	start := timeutil.StartOfDay(from.In(s.loc))
	end := timeutil.StartOfDay(to.In(s.loc))
	var out []store.Report
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		r, _, err := s.Get(ctx, d)
		if errors.Is(err, persist.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
