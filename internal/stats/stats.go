// Package stats derives analytics from a task snapshot. Every function is pure:
// the same tasks always produce the same result.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// PointsPerWorkday is the number of points a workday is expected to absorb.
const PointsPerWorkday = 5

// SizeTime is the time spent on tasks of one size.
type SizeTime struct {
	Size    store.Size
	Seconds int64
	Hours   float64
	Percent float64
}

// SizeTimeBreakdown sums time-entry durations per size and their share of the total.
// Every size is present, in ascending order.
func SizeTimeBreakdown(tasks []store.Task) []SizeTime {
	bySize := make(map[store.Size]int64)
	var total int64
	for _, t := range tasks {
		secs := t.TotalSeconds()
		bySize[t.Size] += secs
		total += secs
	}

	out := make([]SizeTime, 0, len(store.Sizes))
	for _, size := range store.Sizes {
		st := SizeTime{Size: size, Seconds: bySize[size], Hours: float64(bySize[size]) / 3600}
		if total > 0 {
			st.Percent = float64(bySize[size]) / float64(total) * 100
		}
		out = append(out, st)
	}
	return out
}

// CompletionTime summarizes how long completed tasks of one size took, in hours.
type CompletionTime struct {
	Size    store.Size
	Samples int
	Avg     float64
	Min     float64
	Max     float64
}

// CompletionTimes computes mean, min and max total tracked hours of completed tasks
// per size. Sizes without completed tasks report zeros.
func CompletionTimes(tasks []store.Task) []CompletionTime {
	samples := make(map[store.Size][]float64)
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		samples[t.Size] = append(samples[t.Size], float64(t.TotalSeconds())/3600)
	}

	out := make([]CompletionTime, 0, len(store.Sizes))
	for _, size := range store.Sizes {
		ct := CompletionTime{Size: size}
		hours := samples[size]
		if len(hours) > 0 {
			ct.Samples = len(hours)
			ct.Min, ct.Max = hours[0], hours[0]
			var sum float64
			for _, h := range hours {
				sum += h
				ct.Min = math.Min(ct.Min, h)
				ct.Max = math.Max(ct.Max, h)
			}
			ct.Avg = sum / float64(len(hours))
		}
		out = append(out, ct)
	}
	return out
}

// WorkloadSuggestion returns the number of workdays the open points need,
// ceil(sum of incomplete points / PointsPerWorkday).
func WorkloadSuggestion(tasks []store.Task) int {
	open := 0
	for _, t := range tasks {
		if !t.Completed {
			open += t.Points
		}
	}
	return int(math.Ceil(float64(open) / PointsPerWorkday))
}

// MonthPoints is the points earned in one month.
type MonthPoints struct {
	Month  string // YYYY-MM
	Points int
}

// MonthlyPoints sums points of completed tasks by the month they were created,
// oldest month first.
func MonthlyPoints(tasks []store.Task) []MonthPoints {
	byMonth := make(map[string]int)
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		byMonth[t.CreatedAt.Format(timeutil.MonthLayout)] += t.Points
	}

	out := make([]MonthPoints, 0, len(byMonth))
	for m, p := range byMonth {
		out = append(out, MonthPoints{Month: m, Points: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// FolderProgress counts completed and total tasks per folder. Tasks without a folder
// are skipped.
type FolderProgress struct {
	Folder    string
	Completed int
	Total     int
}

// Percent returns completion as 0-100.
func (f FolderProgress) Percent() float64 {
	if f.Total == 0 {
		return 0
	}
	return float64(f.Completed) / float64(f.Total) * 100
}

func FoldersProgress(tasks []store.Task) []FolderProgress {
	byFolder := make(map[string]*FolderProgress)
	for _, t := range tasks {
		if t.Folder == "" {
			continue
		}
		fp, ok := byFolder[t.Folder]
		if !ok {
			fp = &FolderProgress{Folder: t.Folder}
			byFolder[t.Folder] = fp
		}
		fp.Total++
		if t.Completed {
			fp.Completed++
		}
	}

	out := make([]FolderProgress, 0, len(byFolder))
	for _, fp := range byFolder {
		out = append(out, *fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out
}

// DailySeconds sums entry durations per day for the days starting at from, one
// value per day. Entries are bucketed by their recorded date.
func DailySeconds(tasks []store.Task, from time.Time, days int) []int64 {
	out := make([]int64, max(days, 0))
	index := make(map[string]int, len(out))
	for i := range out {
		index[timeutil.DayKey(from.AddDate(0, 0, i))] = i
	}
	for _, t := range tasks {
		for _, e := range t.TimeEntries {
			if i, ok := index[e.Date]; ok {
				out[i] += e.Duration
			}
		}
	}
	return out
}
