package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type reportRow struct {
	Date string `db:"report_date"`
	Data string `db:"data"`
}

// PutReport upserts the user's snapshot for r.Date.
func (s *Store) PutReport(ctx context.Context, r Report) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO reports (user_id, report_date, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, report_date) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`),
		r.UserID, r.Date, string(data), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert report %s: %w", r.Date, classify(err))
	}
	return nil
}

// GetReport returns the user's snapshot for day (YYYY-MM-DD), or ErrNotFound.
func (s *Store) GetReport(ctx context.Context, userID, day string) (*Report, error) {
	var row reportRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT report_date, data FROM reports WHERE user_id = ? AND report_date = ?`), userID, day)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", day, classify(err))
	}
	return decodeReport(row)
}

// ListReports returns snapshots with from <= date <= to, oldest first.
func (s *Store) ListReports(ctx context.Context, userID, from, to string) ([]Report, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT report_date, data FROM reports
		WHERE user_id = ? AND report_date >= ? AND report_date <= ?
		ORDER BY report_date`), userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", classify(err))
	}
	var reports []Report
	for _, row := range rows {
		r, err := decodeReport(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func decodeReport(row reportRow) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(row.Data), &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", row.Date, err)
	}
	return &r, nil
}
