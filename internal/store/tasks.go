package store

import (
	"context"
	"fmt"
	"time"
)

type taskRow struct {
	ID          int64   `db:"id"`
	UserID      string  `db:"user_id"`
	Title       string  `db:"title"`
	Size        string  `db:"size"`
	Points      int     `db:"points"`
	Priority    string  `db:"priority"`
	DueDate     *string `db:"due_date"`
	Folder      string  `db:"folder"`
	Description string  `db:"description"`
	Completed   int     `db:"completed"`
	CompletedAt *string `db:"completed_at"`
	CreatedAt   string  `db:"created_at"`
}

func (r taskRow) task() Task {
	return Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Size:        Size(r.Size),
		Points:      r.Points,
		Priority:    Priority(r.Priority),
		DueDate:     parseNullTime(r.DueDate),
		Folder:      r.Folder,
		Description: r.Description,
		Completed:   r.Completed == 1,
		CompletedAt: parseNullTime(r.CompletedAt),
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

const taskColumns = `id, user_id, title, size, points, priority, due_date, folder, description, completed, completed_at, created_at`

// CreateTask inserts t for t.UserID and returns the stored task.
func (s *Store) CreateTask(ctx context.Context, t Task) (*Task, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.rebind(`
		INSERT INTO tasks (user_id, title, size, points, priority, due_date, folder, description, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		t.UserID, t.Title, string(t.Size), t.Points, string(t.Priority), nullTime(t.DueDate),
		t.Folder, t.Description, boolInt(t.Completed), nullTime(t.CompletedAt), formatTime(t.CreatedAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", classify(err))
	}
	return s.GetTask(ctx, t.UserID, id)
}

// GetTask returns one task with its time entries.
func (s *Store) GetTask(ctx context.Context, userID string, id int64) (*Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, classify(err))
	}
	t := row.task()

	entries, err := s.ListEntries(ctx, userID, EntryFilter{TaskID: &id})
	if err != nil {
		return nil, err
	}
	t.TimeEntries = entries
	return &t, nil
}

// ListTasks returns every task of the user, oldest first, each with its time entries
// in insertion order.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", classify(err))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	entries, err := s.ListEntries(ctx, userID, EntryFilter{})
	if err != nil {
		return nil, err
	}
	byTask := make(map[int64][]TimeEntry)
	for _, e := range entries {
		byTask[e.TaskID] = append(byTask[e.TaskID], e)
	}

	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		t := r.task()
		t.TimeEntries = byTask[t.ID]
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTask overwrites the editable fields of t. Time entries are not touched.
func (s *Store) UpdateTask(ctx context.Context, t Task) (*Task, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE tasks
		SET title = ?, size = ?, points = ?, priority = ?, due_date = ?, folder = ?,
		    description = ?, completed = ?, completed_at = ?
		WHERE user_id = ? AND id = ?`),
		t.Title, string(t.Size), t.Points, string(t.Priority), nullTime(t.DueDate), t.Folder,
		t.Description, boolInt(t.Completed), nullTime(t.CompletedAt), t.UserID, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", t.ID, classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	return s.GetTask(ctx, t.UserID, t.ID)
}

// DeleteTask removes the task and its time entries.
func (s *Store) DeleteTask(ctx context.Context, userID string, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete task: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM time_entries WHERE user_id = ? AND task_id = ?`), userID, id); err != nil {
		return fmt.Errorf("delete task entries: %w", classify(err))
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
