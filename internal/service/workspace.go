package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/store"
)

type WorkspaceService struct {
	store domain.WorkspaceStore
}

func NewWorkspaceService(s domain.WorkspaceStore) *WorkspaceService {
	return &WorkspaceService{store: s}
}

var (
	ErrWorkspaceConflict    = errors.New("workspace with this api key already exists")
	ErrWorkspaceNameMissing = errors.New("workspace name is required")
)

func (s *WorkspaceService) Create(ctx context.Context, w *domain.Workspace) error {
	if w.Name == "" {
		return ErrWorkspaceNameMissing
	}
	err := s.store.Create(ctx, w)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrWorkspaceConflict
		}
		return err
	}
	return nil
}
