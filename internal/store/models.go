package store

import (
	"fmt"
	"strings"
	"time"
)

// Size is the relative effort of a task.
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Sizes lists every size in ascending order.
var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

var sizePoints = map[Size]int{
	SizeXS:  1,
	SizeS:   2,
	SizeM:   3,
	SizeL:   5,
	SizeXL:  8,
	SizeXXL: 13,
}

// PointsForSize returns the story points of a size, or 0 for an unknown size.
func PointsForSize(s Size) int {
	return sizePoints[s]
}

// ParseSize accepts a size in any letter case.
func ParseSize(s string) (Size, error) {
	size := Size(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := sizePoints[size]; !ok {
		return "", fmt.Errorf("unknown size %q (use XS, S, M, L, XL or XXL)", s)
	}
	return size, nil
}

// Priority is an optional task priority.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low, medium, high or an empty string.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q (use low, medium or high)", s)
	}
}

type Task struct {
	ID          int64       `json:"id" yaml:"id"`
	UserID      string      `json:"user_id" yaml:"user_id"`
	Title       string      `json:"title" yaml:"title"`
	Size        Size        `json:"size" yaml:"size"`
	Points      int         `json:"points" yaml:"points"`
	Priority    Priority    `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Folder      string      `json:"folder,omitempty" yaml:"folder,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool        `json:"completed" yaml:"completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	TimeEntries []TimeEntry `json:"time_entries" yaml:"time_entries"`
}

// TotalSeconds sums the durations of all time entries of the task.
func (t Task) TotalSeconds() int64 {
	var total int64
	for _, e := range t.TimeEntries {
		total += e.Duration
	}
	return total
}

// LastEntry returns the most recently appended time entry.
func (t Task) LastEntry() (TimeEntry, bool) {
	if len(t.TimeEntries) == 0 {
		return TimeEntry{}, false
	}
	return t.TimeEntries[len(t.TimeEntries)-1], true
}

type TimeEntry struct {
	ID        int64     `json:"id" yaml:"id"`
	TaskID    int64     `json:"task_id" yaml:"task_id"`
	UserID    string    `json:"-" yaml:"-"`
	Date      string    `json:"date" yaml:"date"`
	Duration  int64     `json:"duration" yaml:"duration"` // seconds
	StartTime time.Time `json:"start_time" yaml:"start_time"`
}

type Folder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Sprint struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TaskIDs   []int64   `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether t falls inside [StartDate, EndDate].
func (s Sprint) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

// HasTask reports whether the task id is in the sprint's list.
func (s Sprint) HasTask(id int64) bool {
	for _, tid := range s.TaskIDs {
		if tid == id {
			return true
		}
	}
	return false
}

// Goal is one row of goal_points.
type Goal struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	Context        string     `json:"context"`
	Value          int        `json:"goal_value"`
	SuggestedValue int        `json:"suggested_value"`
	PointsAtStart  int        `json:"points_at_start"`
	PointsAtEnd    *int       `json:"points_at_end,omitempty"`
	Active         bool       `json:"is_active"`
	Achieved       bool       `json:"achieved"`
	AchievedAt     *time.Time `json:"achieved_date,omitempty"`
	EndedAt        *time.Time `json:"end_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// GoalFilter narrows goal queries. An empty Context matches every context.
type GoalFilter struct {
	Context    string
	SprintOnly bool
	Achieved   bool
	Limit      int
}

// EntryFilter is used to filter time entries in queries.
type EntryFilter struct {
	TaskID *int64
	From   *time.Time
	To     *time.Time
	Limit  int
}

// SizeCount pairs a size with a count of completed tasks.
type SizeCount map[Size]int

// Report is the daily analytics snapshot cached per user and day.
type Report struct {
	UserID           string           `json:"user_id"`
	Date             string           `json:"report_date"`
	TotalTime        int64            `json:"total_time"`
	CompletedTasks   int              `json:"completed_tasks"`
	PointsEarned     int              `json:"points_earned"`
	SizeBreakdown    SizeCount        `json:"size_breakdown"`
	TimeDistribution [24]int64        `json:"time_distribution"`
	CompletionTimes  map[Size]float64 `json:"completion_times"`
	MonthlyPoints    map[string]int   `json:"monthly_points"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
