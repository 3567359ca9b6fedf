package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type folderRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

func (s *Store) CreateFolder(ctx context.Context, userID, name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create folder: name is required")
	}
	f := &Folder{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO folders (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`),
		f.ID, f.UserID, f.Name, formatTime(f.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", classify(err))
	}
	return f, nil
}

func (s *Store) ListFolders(ctx context.Context, userID string) ([]Folder, error) {
	var rows []folderRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`SELECT id, user_id, name, created_at FROM folders WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", classify(err))
	}
	var folders []Folder
	for _, r := range rows {
		folders = append(folders, Folder{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)})
	}
	return folders, nil
}

// RenameFolder renames the folder and moves its tasks along with it.
func (s *Store) RenameFolder(ctx context.Context, userID, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename folder: name is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename folder: %w", err)
	}
	defer tx.Rollback()

	var old string
	if err := tx.GetContext(ctx, &old, s.rebind(`SELECT name FROM folders WHERE user_id = ? AND id = ?`), userID, id); err != nil {
		return fmt.Errorf("get folder %s: %w", id, classify(err))
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE folders SET name = ? WHERE user_id = ? AND id = ?`), name, userID, id); err != nil {
		return fmt.Errorf("rename folder: %w", classify(err))
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE tasks SET folder = ? WHERE user_id = ? AND folder = ?`), name, userID, old); err != nil {
		return fmt.Errorf("move folder tasks: %w", classify(err))
	}
	return tx.Commit()
}

// DeleteFolder removes the folder. Tasks keep their folder name.
func (s *Store) DeleteFolder(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM folders WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete folder %s: %w", id, ErrNotFound)
	}
	return nil
}
