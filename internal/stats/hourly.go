package stats

import (
	"time"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

// HourStat is the tracked time that started in one hour of the day.
type HourStat struct {
	Hour             int
	TotalSeconds     int64
	CompletedSeconds int64
}

// Ratio is the share of the hour's time spent on tasks that were later completed.
// Hours without time report 0.
func (h HourStat) Ratio() float64 {
	if h.TotalSeconds == 0 {
		return 0
	}
	return float64(h.CompletedSeconds) / float64(h.TotalSeconds)
}

// HourlyProductivity buckets every time entry by the local hour of its start time.
func HourlyProductivity(tasks []store.Task, loc *time.Location) [24]HourStat {
	if loc == nil {
		loc = time.Local
	}
	var hours [24]HourStat
	for i := range hours {
		hours[i].Hour = i
	}
	for _, t := range tasks {
		for _, e := range t.TimeEntries {
			h := e.StartTime.In(loc).Hour()
			hours[h].TotalSeconds += e.Duration
			if t.Completed {
				hours[h].CompletedSeconds += e.Duration
			}
		}
	}
	return hours
}

// MostProductiveHour returns the hour with the highest completed ratio. Hours with no
// tracked time are ignored; ties go to the earlier hour.
func MostProductiveHour(hours [24]HourStat) (int, bool) {
	best, found := 0, false
	for _, h := range hours {
		if h.TotalSeconds == 0 {
			continue
		}
		if !found || h.Ratio() > hours[best].Ratio() {
			best, found = h.Hour, true
		}
	}
	return best, found
}

// Habit names a part of the day.
type Habit string

const (
	HabitMorning   Habit = "morning"
	HabitAfternoon Habit = "afternoon"
	HabitEvening   Habit = "evening"
	HabitNight     Habit = "night"
)

// Habits lists the parts of the day in display order.
var Habits = []Habit{HabitMorning, HabitAfternoon, HabitEvening, HabitNight}

// HabitFor maps an hour to morning (5-12), afternoon (12-17), evening (17-22) or night.
func HabitFor(hour int) Habit {
	switch {
	case hour >= 5 && hour < 12:
		return HabitMorning
	case hour >= 12 && hour < 17:
		return HabitAfternoon
	case hour >= 17 && hour < 22:
		return HabitEvening
	default:
		return HabitNight
	}
}

// WorkHabits sums tracked seconds per part of the day.
func WorkHabits(tasks []store.Task, loc *time.Location) map[Habit]int64 {
	out := map[Habit]int64{HabitMorning: 0, HabitAfternoon: 0, HabitEvening: 0, HabitNight: 0}
	for _, h := range HourlyProductivity(tasks, loc) {
		out[HabitFor(h.Hour)] += h.TotalSeconds
	}
	return out
}
