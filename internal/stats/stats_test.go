package stats

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

func at(month time.Month, d, hour int) time.Time {
	return time.Date(2024, month, d, hour, 0, 0, 0, time.UTC)
}

func entry(start time.Time, secs int64) store.TimeEntry {
	return store.TimeEntry{Date: start.Format("2006-01-02"), Duration: secs, StartTime: start}
}

func task(id int64, size store.Size, completed bool, created time.Time, entries ...store.TimeEntry) store.Task {
	t := store.Task{
		ID:          id,
		Title:       "task",
		Size:        size,
		Points:      store.PointsForSize(size),
		Completed:   completed,
		CreatedAt:   created,
		TimeEntries: entries,
	}
	if completed {
		done := created.Add(24 * time.Hour)
		t.CompletedAt = &done
	}
	return t
}

func sampleTasks() []store.Task {
	return []store.Task{
		task(1, store.SizeS, true, at(1, 5, 8), entry(at(1, 5, 9), 3600), entry(at(1, 5, 14), 1800)),
		task(2, store.SizeS, true, at(2, 1, 8), entry(at(2, 1, 9), 7200)),
		task(3, store.SizeL, false, at(2, 3, 8), entry(at(2, 3, 9), 3600), entry(at(2, 3, 20), 1800)),
		task(4, store.SizeXL, false, at(2, 4, 8)),
		task(5, store.SizeM, true, at(2, 10, 8)),
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ============================================================
// Size time and completion
// ============================================================

func TestSizeTimeBreakdown(t *testing.T) {
	got := SizeTimeBreakdown(sampleTasks())
	if len(got) != len(store.Sizes) {
		t.Fatalf("expected %d sizes, got %d", len(store.Sizes), len(got))
	}

	bySize := make(map[store.Size]SizeTime)
	for _, st := range got {
		bySize[st.Size] = st
	}
	// S: 3600+1800+7200 = 12600s, L: 5400s, total 18000s.
	if bySize[store.SizeS].Seconds != 12600 || !approx(bySize[store.SizeS].Hours, 3.5) {
		t.Fatalf("S = %+v", bySize[store.SizeS])
	}
	if !approx(bySize[store.SizeS].Percent, 70) || !approx(bySize[store.SizeL].Percent, 30) {
		t.Fatalf("percentages = %v / %v", bySize[store.SizeS].Percent, bySize[store.SizeL].Percent)
	}
	if bySize[store.SizeXL].Percent != 0 {
		t.Fatal("XL has no time")
	}
}

func TestSizeTimeBreakdownEmpty(t *testing.T) {
	for _, st := range SizeTimeBreakdown(nil) {
		if st.Seconds != 0 || st.Percent != 0 {
			t.Fatalf("expected zeros, got %+v", st)
		}
	}
}

func TestCompletionTimes(t *testing.T) {
	got := CompletionTimes(sampleTasks())
	bySize := make(map[store.Size]CompletionTime)
	for _, ct := range got {
		bySize[ct.Size] = ct
	}

	s := bySize[store.SizeS]
	if s.Samples != 2 || !approx(s.Avg, 1.75) || !approx(s.Min, 1.5) || !approx(s.Max, 2) {
		t.Fatalf("S completion = %+v", s)
	}
	// Incomplete L task is not a sample.
	if l := bySize[store.SizeL]; l.Samples != 0 || l.Avg != 0 || l.Min != 0 || l.Max != 0 {
		t.Fatalf("L completion = %+v", l)
	}
	// Completed without time: one sample of zero hours.
	if m := bySize[store.SizeM]; m.Samples != 1 || m.Avg != 0 {
		t.Fatalf("M completion = %+v", m)
	}
}

func TestWorkloadSuggestion(t *testing.T) {
	tests := []struct {
		name   string
		points []int
		want   int
	}{
		{"none", nil, 0},
		{"exact", []int{5}, 1},
		{"rounds up", []int{13, 8, 2}, 5},
		{"one point", []int{1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []store.Task
			for _, p := range tt.points {
				tasks = append(tasks, store.Task{Points: p})
			}
			// Completed points never count.
			tasks = append(tasks, store.Task{Points: 40, Completed: true})
			if got := WorkloadSuggestion(tasks); got != tt.want {
				t.Fatalf("WorkloadSuggestion = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthlyPoints(t *testing.T) {
	got := MonthlyPoints(sampleTasks())
	want := []MonthPoints{{Month: "2024-01", Points: 2}, {Month: "2024-02", Points: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MonthlyPoints = %+v, want %+v", got, want)
	}
}

func TestFoldersProgress(t *testing.T) {
	tasks := []store.Task{
		{Folder: "home", Completed: true},
		{Folder: "home"},
		{Folder: "work", Completed: true},
		{},
	}
	got := FoldersProgress(tasks)
	if len(got) != 2 || got[0].Folder != "home" || got[0].Completed != 1 || got[0].Total != 2 {
		t.Fatalf("FoldersProgress = %+v", got)
	}
	if !approx(got[0].Percent(), 50) || !approx(got[1].Percent(), 100) {
		t.Fatalf("percent = %v / %v", got[0].Percent(), got[1].Percent())
	}
}

func TestAggregationDeterministic(t *testing.T) {
	tasks := sampleTasks()
	if !reflect.DeepEqual(SizeTimeBreakdown(tasks), SizeTimeBreakdown(tasks)) {
		t.Fatal("SizeTimeBreakdown is not deterministic")
	}
	if !reflect.DeepEqual(CompletionTimes(tasks), CompletionTimes(tasks)) {
		t.Fatal("CompletionTimes is not deterministic")
	}
	if !reflect.DeepEqual(MonthlyPoints(tasks), MonthlyPoints(tasks)) {
		t.Fatal("MonthlyPoints is not deterministic")
	}
	if HourlyProductivity(tasks, time.UTC) != HourlyProductivity(tasks, time.UTC) {
		t.Fatal("HourlyProductivity is not deterministic")
	}
}

// ============================================================
// Hourly productivity and habits
// ============================================================

func TestHourlyProductivity(t *testing.T) {
	hours := HourlyProductivity(sampleTasks(), time.UTC)

	nine := hours[9]
	// 9h: task1 3600 + task2 7200 completed, task3 3600 open.
	if nine.TotalSeconds != 14400 || nine.CompletedSeconds != 10800 {
		t.Fatalf("09h = %+v", nine)
	}
	if !approx(nine.Ratio(), 0.75) {
		t.Fatalf("09h ratio = %v", nine.Ratio())
	}
	if hours[3].Ratio() != 0 {
		t.Fatal("empty hour should have ratio 0")
	}

	best, ok := MostProductiveHour(hours)
	if !ok || best != 14 {
		t.Fatalf("MostProductiveHour = %d, %v; want 14", best, ok)
	}
}

func TestMostProductiveHourEmpty(t *testing.T) {
	if _, ok := MostProductiveHour(HourlyProductivity(nil, time.UTC)); ok {
		t.Fatal("no tracked time should yield no productive hour")
	}
}

func TestHabitFor(t *testing.T) {
	tests := []struct {
		hour int
		want Habit
	}{
		{4, HabitNight},
		{5, HabitMorning},
		{11, HabitMorning},
		{12, HabitAfternoon},
		{17, HabitEvening},
		{21, HabitEvening},
		{22, HabitNight},
	}
	for _, tt := range tests {
		if got := HabitFor(tt.hour); got != tt.want {
			t.Errorf("HabitFor(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestWorkHabits(t *testing.T) {
	got := WorkHabits(sampleTasks(), time.UTC)
	if got[HabitMorning] != 14400 || got[HabitAfternoon] != 1800 || got[HabitEvening] != 1800 || got[HabitNight] != 0 {
		t.Fatalf("WorkHabits = %v", got)
	}
}

// ============================================================
// Insights
// ============================================================

func TestPredictionsAndEfficiency(t *testing.T) {
	times := CompletionTimes(sampleTasks())
	preds := Predictions(times)
	if len(preds) != 2 {
		t.Fatalf("expected predictions for S and M, got %+v", preds)
	}
	for _, p := range preds {
		if !approx(p.Predicted, p.Current*0.9) {
			t.Fatalf("prediction %+v is not 90%% of current", p)
		}
	}

	size, ok := MostEfficientSize(times)
	if !ok || size != store.SizeM {
		t.Fatalf("MostEfficientSize = %s, %v; want M", size, ok)
	}
	if _, ok := MostEfficientSize(CompletionTimes(nil)); ok {
		t.Fatal("no samples should yield no efficient size")
	}
}

func TestPointsPerHour(t *testing.T) {
	got := PointsPerHour(sampleTasks())
	// S: 4 points over 3.5 hours.
	if !approx(got[store.SizeS], 4/3.5) {
		t.Fatalf("S points/hour = %v", got[store.SizeS])
	}
	if _, ok := got[store.SizeM]; ok {
		t.Fatal("sizes without time should be skipped")
	}
}

// ============================================================
// Daily report
// ============================================================

func TestBuildReportCutsOffAtDay(t *testing.T) {
	tasks := sampleTasks()
	// Task 1 completes Jan 6; report for Jan 31 sees only it and January entries.
	r := BuildReport("u1", tasks, at(1, 31, 12), time.UTC)

	if r.Date != "2024-01-31" || r.UserID != "u1" {
		t.Fatalf("unexpected key: %s %s", r.UserID, r.Date)
	}
	if r.TotalTime != 5400 {
		t.Fatalf("TotalTime = %d, want 5400", r.TotalTime)
	}
	if r.CompletedTasks != 1 || r.PointsEarned != 2 {
		t.Fatalf("completed = %d, points = %d", r.CompletedTasks, r.PointsEarned)
	}
	if r.TimeDistribution[9] != 3600 || r.TimeDistribution[14] != 1800 {
		t.Fatalf("distribution = %v", r.TimeDistribution)
	}
	if r.MonthlyPoints["2024-01"] != 2 {
		t.Fatalf("monthly = %v", r.MonthlyPoints)
	}
	if !approx(r.CompletionTimes[store.SizeS], 5400) {
		t.Fatalf("completion times = %v", r.CompletionTimes)
	}

	full := BuildReport("u1", tasks, at(3, 1, 12), time.UTC)
	if full.CompletedTasks != 3 || full.PointsEarned != 7 {
		t.Fatalf("full report completed = %d, points = %d", full.CompletedTasks, full.PointsEarned)
	}
	if full.SizeBreakdown[store.SizeS] != 2 || full.SizeBreakdown[store.SizeXL] != 1 {
		t.Fatalf("size breakdown = %v", full.SizeBreakdown)
	}
}

func TestDailySeconds(t *testing.T) {
	tasks := sampleTasks()
	got := DailySeconds(tasks, at(1, 4, 0), 3)
	want := []int64{0, 5400, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DailySeconds = %v, want %v", got, want)
	}
	if n := len(DailySeconds(tasks, at(1, 4, 0), 0)); n != 0 {
		t.Fatalf("zero days should give an empty slice, got %d values", n)
	}
}
