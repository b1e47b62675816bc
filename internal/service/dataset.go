package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/ingest"
	"github.com/Harshitk-cp/prest/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrDatasetConflict    = errors.New("dataset with this name already exists")
	ErrDatasetNameMissing = errors.New("dataset name is required")
	ErrDatasetEmpty       = errors.New("dataset has no subjects")
	ErrInvalidDataset     = errors.New("invalid dataset")
	ErrSubjectNotFound    = errors.New("subject not found")
)

type DatasetService struct {
	store  domain.DatasetStore
	logger *zap.Logger
}

func NewDatasetService(s domain.DatasetStore, logger *zap.Logger) *DatasetService {
	return &DatasetService{store: s, logger: logger}
}

// Import groups the CSV rows of r into subjects and stores them as a new dataset.
// Malformed input is reported as ErrInvalidDataset wrapping the ingest error.
func (s *DatasetService) Import(ctx context.Context, workspaceID uuid.UUID, name string, r io.Reader, opts ingest.Options) (*domain.Dataset, error) {
	if name == "" {
		return nil, ErrDatasetNameMissing
	}

	subjects, labels, err := ingest.ReadChoiceSubjects(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if len(subjects) == 0 {
		return nil, ErrDatasetEmpty
	}

	d := &domain.Dataset{
		WorkspaceID:  workspaceID,
		Name:         name,
		Alternatives: labels,
		ForcedChoice: opts.ForcedChoice,
	}
	if err := s.store.Create(ctx, d, subjects); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDatasetConflict
		}
		return nil, err
	}

	s.logger.Info("dataset imported",
		zap.String("dataset_id", d.ID.String()),
		zap.String("workspace_id", workspaceID.String()),
		zap.Int("subjects", len(subjects)),
		zap.Int("alternatives", len(labels)),
	)
	return d, nil
}

func (s *DatasetService) Get(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) (*domain.Dataset, error) {
	d, err := s.store.GetByID(ctx, id, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DatasetService) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Dataset, error) {
	return s.store.List(ctx, workspaceID)
}

func (s *DatasetService) Delete(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) error {
	err := s.store.Delete(ctx, id, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDatasetNotFound
		}
		return err
	}
	s.logger.Info("dataset deleted", zap.String("dataset_id", id.String()))
	return nil
}

// SubjectStats summarizes every subject of a dataset, in import order.
func (s *DatasetService) SubjectStats(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) ([]domain.SubjectStats, error) {
	if _, err := s.Get(ctx, id, workspaceID); err != nil {
		return nil, err
	}

	subjects, err := s.store.Subjects(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.SubjectStats, 0, len(subjects))
	for i := range subjects {
		stats = append(stats, domain.Summarize(&subjects[i]))
	}
	return stats, nil
}

// Subject returns one named subject of a dataset.
func (s *DatasetService) Subject(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID, name string) (*domain.Subject, error) {
	if _, err := s.Get(ctx, id, workspaceID); err != nil {
		return nil, err
	}
	subj, err := s.store.GetSubject(ctx, id, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return subj, nil
}
