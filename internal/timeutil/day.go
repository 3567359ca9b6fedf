package timeutil

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day format used for time entry dates and report keys.
const DayLayout = "2006-01-02"

// MonthLayout buckets points by month.
const MonthLayout = "2006-01"

// StartOfDay returns midnight of the given day in the same timezone.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of the given day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Second)
}

// DayKey formats t as YYYY-MM-DD in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// SameDay reports whether a and b fall on the same calendar day of a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	a = StartOfDay(a)
	b = StartOfDay(b.In(a.Location()))
	// Dates are built at noon UTC so DST shifts never move the division across a day.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 12, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 12, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// ParseDate parses YYYY-MM-DD or DD/MM/YYYY into midnight of that day in loc.
func ParseDate(input string, loc *time.Location) (time.Time, error) {
	if input == "" {
		return time.Time{}, fmt.Errorf("date cannot be empty (use format YYYY-MM-DD, e.g., 2024-01-15)")
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DayLayout, input, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("02/01/2006", input, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format '%s' (use YYYY-MM-DD or DD/MM/YYYY)", input)
}
