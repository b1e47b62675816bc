package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type WorkspaceStore interface {
	Create(ctx context.Context, w *Workspace) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Workspace, error)
}

type DatasetStore interface {
	// Create persists the dataset and its subjects in input order.
	Create(ctx context.Context, d *Dataset, subjects []Subject) error
	GetByID(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) (*Dataset, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]Dataset, error)
	Delete(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) error
	// Subjects returns the dataset's subjects in import order.
	Subjects(ctx context.Context, datasetID uuid.UUID) ([]Subject, error)
	GetSubject(ctx context.Context, datasetID uuid.UUID, name string) (*Subject, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
