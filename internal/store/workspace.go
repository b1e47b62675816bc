package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkspaceStore struct {
	db *pgxpool.Pool
}

func NewWorkspaceStore(db *pgxpool.Pool) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

func (s *WorkspaceStore) Create(ctx context.Context, w *domain.Workspace) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO workspaces (name, api_key_hash) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		w.Name, w.APIKeyHash,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *WorkspaceStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Workspace, error) {
	w := &domain.Workspace{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at, updated_at
		 FROM workspaces WHERE api_key_hash = $1`,
		apiKeyHash,
	).Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}
