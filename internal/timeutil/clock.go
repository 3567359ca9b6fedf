package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyRange is returned when a clock range or a duration adds up to zero.
var ErrEmptyRange = errors.New("duration must be greater than zero")

// ParseClock parses a wall-clock time in HH:MM (24-hour) form and returns hours and minutes.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time '%s' (use HH:MM, e.g., 09:30)", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in '%s' (must be 00-23)", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid minute in '%s' (must be 00-59)", s)
	}
	return hour, minute, nil
}

// ClockRange turns a start and end wall-clock time on day into the start instant and the
// elapsed duration. An end before the start rolls over to the next day, so 23:30 to 00:30
// is one hour.
func ClockRange(day time.Time, from, to string) (time.Time, time.Duration, error) {
	fh, fm, err := ParseClock(from)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("start time: %w", err)
	}
	th, tm, err := ParseClock(to)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("end time: %w", err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), fh, fm, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), th, tm, 0, 0, day.Location())
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}

	d := end.Sub(start)
	if d <= 0 {
		return time.Time{}, 0, ErrEmptyRange
	}
	return start, d, nil
}

// HoursMinutes converts a manual hours/minutes pair into a duration.
func HoursMinutes(hours, minutes int) (time.Duration, error) {
	if hours < 0 || minutes < 0 {
		return 0, fmt.Errorf("hours and minutes must not be negative")
	}
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if d <= 0 {
		return 0, ErrEmptyRange
	}
	return d, nil
}

// FormatSeconds renders a second count as HH:MM:SS.
func FormatSeconds(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatHours renders a second count as fractional hours, e.g. "1.50h".
func FormatHours(secs int64) string {
	return fmt.Sprintf("%.2fh", float64(secs)/3600)
}
