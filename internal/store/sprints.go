package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type sprintRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	StartDate string `db:"start_date"`
	EndDate   string `db:"end_date"`
	CreatedAt string `db:"created_at"`
}

type sprintTaskRow struct {
	SprintID string `db:"sprint_id"`
	TaskID   int64  `db:"task_id"`
}

func (r sprintRow) sprint() Sprint {
	return Sprint{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		StartDate: parseTime(r.StartDate),
		EndDate:   parseTime(r.EndDate),
		CreatedAt: parseTime(r.CreatedAt),
	}
}

// ListSprints returns the user's sprints by ascending start date, each with its task ids.
func (s *Store) ListSprints(ctx context.Context, userID string) ([]Sprint, error) {
	var rows []sprintRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT id, user_id, name, start_date, end_date, created_at
		FROM sprints WHERE user_id = ?
		ORDER BY start_date, created_at`), userID)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", classify(err))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var links []sprintTaskRow
	err = s.db.SelectContext(ctx, &links, s.rebind(`
		SELECT st.sprint_id, st.task_id
		FROM sprint_tasks st
		JOIN sprints sp ON sp.id = st.sprint_id
		WHERE sp.user_id = ?
		ORDER BY st.sprint_id, st.position`), userID)
	if err != nil {
		return nil, fmt.Errorf("list sprint tasks: %w", classify(err))
	}
	bySprint := make(map[string][]int64)
	for _, l := range links {
		bySprint[l.SprintID] = append(bySprint[l.SprintID], l.TaskID)
	}

	sprints := make([]Sprint, 0, len(rows))
	for _, r := range rows {
		sp := r.sprint()
		sp.TaskIDs = bySprint[sp.ID]
		sprints = append(sprints, sp)
	}
	return sprints, nil
}

// OverlappingSprints returns sprints whose range intersects [start, end), using
// existing.start < end AND existing.end > start.
func (s *Store) OverlappingSprints(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]Sprint, error) {
	var rows []sprintRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT id, user_id, name, start_date, end_date, created_at
		FROM sprints
		WHERE user_id = ? AND start_date < ? AND end_date > ? AND id <> ?
		ORDER BY start_date`),
		userID, formatTime(end), formatTime(start), excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping sprints: %w", classify(err))
	}
	var sprints []Sprint
	for _, r := range rows {
		sprints = append(sprints, r.sprint())
	}
	return sprints, nil
}

// CreateSprint inserts sp with an empty task list and returns it with a fresh id.
func (s *Store) CreateSprint(ctx context.Context, sp Sprint) (*Sprint, error) {
	sp.Name = strings.TrimSpace(sp.Name)
	sp.ID = uuid.NewString()
	sp.TaskIDs = nil
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sprints (id, user_id, name, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		sp.ID, sp.UserID, sp.Name, formatTime(sp.StartDate), formatTime(sp.EndDate), formatTime(sp.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert sprint: %w", classify(err))
	}
	sp.StartDate = parseTime(formatTime(sp.StartDate))
	sp.EndDate = parseTime(formatTime(sp.EndDate))
	sp.CreatedAt = parseTime(formatTime(sp.CreatedAt))
	return &sp, nil
}

// UpdateSprint changes the name and dates of a sprint.
func (s *Store) UpdateSprint(ctx context.Context, sp Sprint) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sprints SET name = ?, start_date = ?, end_date = ?
		WHERE user_id = ? AND id = ?`),
		strings.TrimSpace(sp.Name), formatTime(sp.StartDate), formatTime(sp.EndDate), sp.UserID, sp.ID)
	if err != nil {
		return fmt.Errorf("update sprint: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update sprint %s: %w", sp.ID, ErrNotFound)
	}
	return nil
}

// SetSprintTasks replaces the sprint's task list, keeping the given order.
func (s *Store) SetSprintTasks(ctx context.Context, userID, sprintID string, taskIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set sprint tasks: %w", err)
	}
	defer tx.Rollback()

	var owner string
	if err := tx.GetContext(ctx, &owner, s.rebind(`SELECT user_id FROM sprints WHERE user_id = ? AND id = ?`), userID, sprintID); err != nil {
		return fmt.Errorf("get sprint %s: %w", sprintID, classify(err))
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sprint_tasks WHERE sprint_id = ?`), sprintID); err != nil {
		return fmt.Errorf("clear sprint tasks: %w", classify(err))
	}
	for i, id := range taskIDs {
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO sprint_tasks (sprint_id, task_id, position) VALUES (?, ?, ?)`), sprintID, id, i)
		if err != nil {
			return fmt.Errorf("insert sprint task %d: %w", id, classify(err))
		}
	}
	return tx.Commit()
}

// DeleteSprint removes the sprint and its task links. Tasks are not touched.
func (s *Store) DeleteSprint(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete sprint: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sprints WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return fmt.Errorf("delete sprint: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete sprint %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sprint_tasks WHERE sprint_id = ?`), id); err != nil {
		return fmt.Errorf("delete sprint tasks: %w", classify(err))
	}
	return tx.Commit()
}
