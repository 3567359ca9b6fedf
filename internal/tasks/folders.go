package tasks

import (
	"context"
	"fmt"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

// Folders returns a copy of the folder list.
func (s *Service) Folders() []store.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Folder, len(s.folders))
	copy(out, s.folders)
	return out
}

func (s *Service) CreateFolder(ctx context.Context, name string) (*store.Folder, error) {
	f, err := s.backend.CreateFolder(ctx, s.userID, name)
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	s.refreshAfterWrite(ctx)
	return f, nil
}

func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	if err := s.backend.RenameFolder(ctx, s.userID, id, name); err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// DeleteFolder removes the folder; its tasks keep the folder name.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if err := s.backend.DeleteFolder(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// InFolder returns the snapshot's tasks filed under name.
func (s *Service) InFolder(name string) []store.Task {
	var out []store.Task
	for _, t := range s.Snapshot() {
		if t.Folder == name {
			out = append(out, t)
		}
	}
	return out
}
