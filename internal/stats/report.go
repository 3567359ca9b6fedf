package stats

import (
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// BuildReport computes the daily snapshot for day. Only entries that started and tasks
// that were completed by the end of day count; monthly points use the completion month.
func BuildReport(userID string, tasks []store.Task, day time.Time, loc *time.Location) store.Report {
	if loc == nil {
		loc = time.Local
	}
	day = day.In(loc)
	cutoff := timeutil.EndOfDay(day)
	doneBy := func(t store.Task) bool {
		return t.Completed && t.CompletedAt != nil && !t.CompletedAt.After(cutoff)
	}

	r := store.Report{
		UserID:          userID,
		Date:            timeutil.DayKey(day),
		SizeBreakdown:   store.SizeCount{},
		CompletionTimes: make(map[store.Size]float64),
		MonthlyPoints:   make(map[string]int),
	}

	completionSecs := make(map[store.Size][]int64)
	for _, t := range tasks {
		for _, e := range t.TimeEntries {
			if e.StartTime.After(cutoff) {
				continue
			}
			r.TotalTime += e.Duration
			r.TimeDistribution[e.StartTime.In(loc).Hour()] += e.Duration
		}

		if t.CompletedAt == nil || !t.CompletedAt.After(cutoff) {
			r.SizeBreakdown[t.Size]++
		}
		if !doneBy(t) {
			continue
		}
		r.CompletedTasks++
		r.PointsEarned += t.Points
		r.MonthlyPoints[t.CompletedAt.In(loc).Format(timeutil.MonthLayout)] += t.Points
		completionSecs[t.Size] = append(completionSecs[t.Size], t.TotalSeconds())
	}

	for size, secs := range completionSecs {
		var sum int64
		for _, s := range secs {
			sum += s
		}
		r.CompletionTimes[size] = float64(sum) / float64(len(secs))
	}
	return r
}
