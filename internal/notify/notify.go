// Package notify derives due-date reminders from the task snapshot and remembers which
// ones the user has seen on this device.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

// Window is how many days ahead a due date raises a reminder.
const Window = 3

// Reminder is an incomplete task due within the window.
type Reminder struct {
	Task     store.Task
	DaysLeft int
	Due      time.Time
	Relative string
}

// Label is the short due text shown next to the title.
func (r Reminder) Label() string {
	switch r.DaysLeft {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("in %d days", r.DaysLeft)
	}
}

// DueSoon returns incomplete tasks due between today and Window days from now,
// soonest first. Days are counted in now's location.
func DueSoon(tasks []store.Task, now time.Time) []Reminder {
	today := timeutil.StartOfDay(now)
	var out []Reminder
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := t.DueDate.In(now.Location())
		days := timeutil.DaysBetween(today, timeutil.StartOfDay(due))
		if days < 0 || days > Window {
			continue
		}
		out = append(out, Reminder{
			Task:     t,
			DaysLeft: days,
			Due:      due,
			Relative: humanize.RelTime(due, now, "ago", "from now"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// Tracker stores per-task seen flags in the device-local cache.
type Tracker struct {
	flags  *persist.Local[bool]
	userID string
}

const seenPurpose = "notification"

func NewTracker(flags *persist.Local[bool], userID string) *Tracker {
	return &Tracker{flags: flags, userID: userID}
}

func (t *Tracker) key(taskID int64) persist.Key {
	return persist.Key{UserID: t.userID, Purpose: seenPurpose, Qualifier: strconv.FormatInt(taskID, 10)}
}

// Unread returns the reminders that have not been marked seen.
func (t *Tracker) Unread(ctx context.Context, reminders []Reminder) ([]Reminder, error) {
	seen, err := t.flags.List(ctx, t.userID, seenPurpose)
	if err != nil {
		return nil, fmt.Errorf("read seen flags: %w", err)
	}
	var out []Reminder
	for _, r := range reminders {
		if !seen[strconv.FormatInt(r.Task.ID, 10)] {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkSeen flags every reminder as seen.
func (t *Tracker) MarkSeen(ctx context.Context, reminders []Reminder) error {
	for _, r := range reminders {
		if err := t.flags.Put(ctx, t.key(r.Task.ID), true); err != nil {
			return fmt.Errorf("mark task %d seen: %w", r.Task.ID, err)
		}
	}
	return nil
}
