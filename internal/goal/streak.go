package goal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// Streaks counts consecutive calendar days with at least one achievement. The current
// streak has to include today or yesterday.
func Streaks(dates []time.Time, today time.Time) (current, longest int) {
	loc := today.Location()
	days := make(map[string]bool)
	var sorted []time.Time
	for _, d := range dates {
		day := timeutil.StartOfDay(d.In(loc))
		key := timeutil.DayKey(day)
		if days[key] {
			continue
		}
		days[key] = true
		sorted = append(sorted, day)
	}
	if len(sorted) == 0 {
		return 0, 0
	}

	start := timeutil.StartOfDay(today)
	if !days[timeutil.DayKey(start)] {
		start = start.AddDate(0, 0, -1)
	}
	for d := start; days[timeutil.DayKey(d)]; d = d.AddDate(0, 0, -1) {
		current++
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	run := 1
	longest = 1
	for i := 1; i < len(sorted); i++ {
		if timeutil.DaysBetween(sorted[i-1], sorted[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return current, longest
}

// Summary aggregates the user's goal history.
type Summary struct {
	Total           int
	Achieved        int
	GeneralAchieved int
	SprintAchieved  int
	CurrentStreak   int
	LongestStreak   int
}

// Summary loads every goal and computes counts and streaks as of today.
func (e *Engine) Summary(ctx context.Context, today time.Time) (Summary, error) {
	goals, err := e.repo.ListGoals(ctx, e.userID, store.GoalFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("load goals: %w", err)
	}

	var (
		s     Summary
		dates []time.Time
	)
	s.Total = len(goals)
	for _, g := range goals {
		if !g.Achieved {
			continue
		}
		s.Achieved++
		if IsSprintContext(g.Context) {
			s.SprintAchieved++
		} else {
			s.GeneralAchieved++
		}
		if g.AchievedAt != nil {
			dates = append(dates, *g.AchievedAt)
		}
	}
	s.CurrentStreak, s.LongestStreak = Streaks(dates, today)
	return s, nil
}
