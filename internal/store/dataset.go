package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/prest/internal/codec"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatasetStore keeps datasets and their subjects. Subjects are stored as
// codec-packed blobs, one row per subject, ordered by import position.
type DatasetStore struct {
	db *pgxpool.Pool
}

func NewDatasetStore(db *pgxpool.Pool) *DatasetStore {
	return &DatasetStore{db: db}
}

func (s *DatasetStore) Create(ctx context.Context, d *domain.Dataset, subjects []domain.Subject) error {
	rows := make([][]any, 0, len(subjects))
	for i := range subjects {
		packed, err := codec.PackSubject(&subjects[i])
		if err != nil {
			return fmt.Errorf("pack subject %q: %w", subjects[i].Name, err)
		}
		rows = append(rows, []any{i, subjects[i].Name, packed})
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO datasets (workspace_id, name, alternatives, subject_count, forced_choice)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		d.WorkspaceID, d.Name, d.Alternatives, len(subjects), d.ForcedChoice,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	d.SubjectCount = len(subjects)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"subjects"},
		[]string{"dataset_id", "position", "name", "data"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return append([]any{d.ID}, rows[i]...), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy subjects: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *DatasetStore) GetByID(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) (*domain.Dataset, error) {
	d := &domain.Dataset{}
	err := s.db.QueryRow(ctx,
		`SELECT id, workspace_id, name, alternatives, subject_count, forced_choice, created_at
		 FROM datasets WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	).Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Alternatives, &d.SubjectCount, &d.ForcedChoice, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DatasetStore) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Dataset, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workspace_id, name, alternatives, subject_count, forced_choice, created_at
		 FROM datasets WHERE workspace_id = $1
		 ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		var d domain.Dataset
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Alternatives, &d.SubjectCount, &d.ForcedChoice, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DatasetStore) Delete(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM datasets WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes datasets created before cutoff, with their subjects.
func (s *DatasetStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM datasets WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *DatasetStore) Subjects(ctx context.Context, datasetID uuid.UUID) ([]domain.Subject, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data FROM subjects WHERE dataset_id = $1 ORDER BY position`,
		datasetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var packed []byte
		if err := rows.Scan(&packed); err != nil {
			return nil, err
		}
		subj, err := codec.UnpackSubject(packed)
		if err != nil {
			return nil, err
		}
		out = append(out, *subj)
	}
	return out, rows.Err()
}

func (s *DatasetStore) GetSubject(ctx context.Context, datasetID uuid.UUID, name string) (*domain.Subject, error) {
	var packed []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM subjects WHERE dataset_id = $1 AND name = $2`,
		datasetID, name,
	).Scan(&packed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return codec.UnpackSubject(packed)
}
