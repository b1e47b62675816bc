package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/store"
	"github.com/google/uuid"
)

// mockWorkspaceStore implements domain.WorkspaceStore for testing.
type mockWorkspaceStore struct {
	workspaces map[string]*domain.Workspace
}

func newMockWorkspaceStore() *mockWorkspaceStore {
	return &mockWorkspaceStore{workspaces: make(map[string]*domain.Workspace)}
}

func (m *mockWorkspaceStore) Create(ctx context.Context, w *domain.Workspace) error {
	if _, ok := m.workspaces[w.APIKeyHash]; ok {
		return store.ErrConflict
	}
	w.ID = uuid.New()
	m.workspaces[w.APIKeyHash] = w
	return nil
}

func (m *mockWorkspaceStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Workspace, error) {
	w, ok := m.workspaces[apiKeyHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return w, nil
}

func TestWorkspaceService_Create(t *testing.T) {
	s := NewWorkspaceService(newMockWorkspaceStore())
	ctx := context.Background()

	w := &domain.Workspace{Name: "lab", APIKeyHash: "h1"}
	if err := s.Create(ctx, w); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if w.ID == uuid.Nil {
		t.Fatal("expected workspace ID to be set")
	}
}

func TestWorkspaceService_CreateDuplicate(t *testing.T) {
	s := NewWorkspaceService(newMockWorkspaceStore())
	ctx := context.Background()

	if err := s.Create(ctx, &domain.Workspace{Name: "lab", APIKeyHash: "h1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	err := s.Create(ctx, &domain.Workspace{Name: "other", APIKeyHash: "h1"})
	if err != ErrWorkspaceConflict {
		t.Fatalf("expected ErrWorkspaceConflict, got %v", err)
	}
}

func TestWorkspaceService_CreateNameMissing(t *testing.T) {
	s := NewWorkspaceService(newMockWorkspaceStore())

	err := s.Create(context.Background(), &domain.Workspace{APIKeyHash: "h1"})
	if err != ErrWorkspaceNameMissing {
		t.Fatalf("expected ErrWorkspaceNameMissing, got %v", err)
	}
}
