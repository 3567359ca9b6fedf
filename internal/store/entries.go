package store

import (
	"context"
	"fmt"
	"time"
)

type entryRow struct {
	ID        int64  `db:"id"`
	TaskID    int64  `db:"task_id"`
	UserID    string `db:"user_id"`
	Date      string `db:"entry_date"`
	Duration  int64  `db:"duration"`
	StartTime string `db:"start_time"`
}

func (r entryRow) entry() TimeEntry {
	return TimeEntry{
		ID:        r.ID,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		Date:      r.Date,
		Duration:  r.Duration,
		StartTime: parseTime(r.StartTime),
	}
}

// AddTimeEntry appends an immutable time entry to a task of e.UserID.
func (s *Store) AddTimeEntry(ctx context.Context, e TimeEntry) (*TimeEntry, error) {
	if e.Duration < 0 {
		return nil, fmt.Errorf("add time entry: negative duration %d", e.Duration)
	}

	var owner string
	err := s.db.GetContext(ctx, &owner, s.rebind(`SELECT user_id FROM tasks WHERE user_id = ? AND id = ?`), e.UserID, e.TaskID)
	if err != nil {
		return nil, fmt.Errorf("add time entry to task %d: %w", e.TaskID, classify(err))
	}

	now := formatTime(time.Now())
	var id int64
	err = s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO time_entries (task_id, user_id, entry_date, duration, start_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		e.TaskID, e.UserID, e.Date, e.Duration, formatTime(e.StartTime), now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert time entry: %w", classify(err))
	}
	e.ID = id
	e.StartTime = parseTime(formatTime(e.StartTime))
	return &e, nil
}

// ListEntries returns the user's time entries in insertion order.
func (s *Store) ListEntries(ctx context.Context, userID string, f EntryFilter) ([]TimeEntry, error) {
	query := `SELECT id, task_id, user_id, entry_date, duration, start_time FROM time_entries WHERE user_id = ?`
	args := []any{userID}

	if f.TaskID != nil {
		query += ` AND task_id = ?`
		args = append(args, *f.TaskID)
	}
	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		query += ` AND start_time < ?`
		args = append(args, formatTime(*f.To))
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", classify(err))
	}

	var entries []TimeEntry
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}
