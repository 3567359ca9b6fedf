package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type goalRow struct {
	ID             string  `db:"id"`
	UserID         string  `db:"user_id"`
	Context        string  `db:"context"`
	Value          int     `db:"goal_value"`
	SuggestedValue int     `db:"suggested_value"`
	PointsAtStart  int     `db:"points_at_start"`
	PointsAtEnd    *int    `db:"points_at_end"`
	Active         int     `db:"is_active"`
	Achieved       int     `db:"achieved"`
	AchievedAt     *string `db:"achieved_date"`
	EndedAt        *string `db:"end_date"`
	CreatedAt      string  `db:"created_at"`
}

func (r goalRow) goal() Goal {
	return Goal{
		ID:             r.ID,
		UserID:         r.UserID,
		Context:        r.Context,
		Value:          r.Value,
		SuggestedValue: r.SuggestedValue,
		PointsAtStart:  r.PointsAtStart,
		PointsAtEnd:    r.PointsAtEnd,
		Active:         r.Active == 1,
		Achieved:       r.Achieved == 1,
		AchievedAt:     parseNullTime(r.AchievedAt),
		EndedAt:        parseNullTime(r.EndedAt),
		CreatedAt:      parseTime(r.CreatedAt),
	}
}

// goalColumns selects a constant context when the column does not exist yet.
func (s *Store) goalColumns() string {
	ctxCol := `'' AS context`
	if s.caps.GoalContext {
		ctxCol = `context`
	}
	return `id, user_id, ` + ctxCol + `, goal_value, suggested_value, points_at_start, points_at_end,
		is_active, achieved, achieved_date, end_date, created_at`
}

// contextClause narrows a goal query to goalCtx. Without the context column every goal
// belongs to the single implicit context and the filter is dropped.
func (s *Store) contextClause(goalCtx string, args []any) (string, []any) {
	if !s.caps.GoalContext || goalCtx == "" {
		return "", args
	}
	return ` AND context = ?`, append(args, goalCtx)
}

// ActiveGoal returns the active goal of a context, or ErrNotFound.
func (s *Store) ActiveGoal(ctx context.Context, userID, goalCtx string) (*Goal, error) {
	clause, args := s.contextClause(goalCtx, []any{userID})
	var row goalRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+s.goalColumns()+`
		FROM goal_points WHERE user_id = ? AND is_active = 1`+clause+`
		ORDER BY created_at DESC LIMIT 1`), args...)
	if err != nil {
		return nil, fmt.Errorf("get active goal: %w", classify(err))
	}
	g := row.goal()
	return &g, nil
}

// DeactivateGoals closes every active goal of the context, snapshotting the points reached.
func (s *Store) DeactivateGoals(ctx context.Context, userID, goalCtx string, pointsAtEnd int, at time.Time) error {
	clause, args := s.contextClause(goalCtx, []any{pointsAtEnd, formatTime(at), userID})
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE goal_points SET is_active = 0, points_at_end = ?, end_date = ?
		WHERE user_id = ? AND is_active = 1`+clause), args...)
	if err != nil {
		return fmt.Errorf("deactivate goals: %w", classify(err))
	}
	return nil
}

// InsertGoal stores a new goal. The context column is only written when the schema has it.
func (s *Store) InsertGoal(ctx context.Context, g Goal) (*Goal, error) {
	g.ID = uuid.NewString()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	cols := `id, user_id, goal_value, suggested_value, points_at_start, points_at_end, is_active, achieved, achieved_date, end_date, created_at`
	marks := `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	args := []any{g.ID, g.UserID, g.Value, g.SuggestedValue, g.PointsAtStart, g.PointsAtEnd,
		boolInt(g.Active), boolInt(g.Achieved), nullTime(g.AchievedAt), nullTime(g.EndedAt), formatTime(g.CreatedAt)}
	if s.caps.GoalContext {
		cols += `, context`
		marks += `, ?`
		args = append(args, g.Context)
	} else {
		g.Context = ""
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO goal_points (`+cols+`) VALUES (`+marks+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", classify(err))
	}
	g.CreatedAt = parseTime(formatTime(g.CreatedAt))
	return &g, nil
}

// MarkGoalAchieved records the achievement of an active goal.
func (s *Store) MarkGoalAchieved(ctx context.Context, userID, id string, pointsAtEnd int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE goal_points SET achieved = 1, achieved_date = ?, points_at_end = ?
		WHERE user_id = ? AND id = ? AND is_active = 1 AND achieved = 0`),
		formatTime(at), pointsAtEnd, userID, id)
	if err != nil {
		return fmt.Errorf("mark goal achieved: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark goal %s achieved: %w", id, ErrNotFound)
	}
	return nil
}

// ListGoals returns goals matching f, newest achievement (or creation) first.
func (s *Store) ListGoals(ctx context.Context, userID string, f GoalFilter) ([]Goal, error) {
	query := `SELECT ` + s.goalColumns() + ` FROM goal_points WHERE user_id = ?`
	args := []any{userID}

	if f.Achieved {
		query += ` AND achieved = 1`
	}
	if s.caps.GoalContext {
		switch {
		case f.SprintOnly:
			query += ` AND substr(context, 1, 7) = 'sprint_'`
		case f.Context != "":
			query += ` AND context = ?`
			args = append(args, f.Context)
		}
	}
	if f.Achieved {
		query += ` ORDER BY achieved_date DESC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	var rows []goalRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list goals: %w", classify(err))
	}
	var goals []Goal
	for _, r := range rows {
		goals = append(goals, r.goal())
	}
	return goals, nil
}
