package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/estimation"
	"github.com/Harshitk-cp/prest/internal/store"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEstimationRejected marks requests the estimator cannot run as configured:
// no subjects, no theories, no instances, or too many alternatives.
var ErrEstimationRejected = errors.New("estimation rejected")

// EstimateInput selects what to estimate from a stored dataset.
type EstimateInput struct {
	DatasetID uuid.UUID
	// Subjects restricts the run to the named subjects, in the given order.
	// Empty means every subject in import order.
	Subjects []string
	Theories []theory.Theory
	// ForcedChoice overrides the mode the dataset was imported with.
	ForcedChoice       *bool
	DisableParallelism bool
}

type EstimationService struct {
	datasets domain.DatasetStore
	cache    estimation.Cache
	space    estimation.InstanceSpace
	workers  int
	logger   *zap.Logger
}

func NewEstimationService(
	datasets domain.DatasetStore,
	cache estimation.Cache,
	space estimation.InstanceSpace,
	workers int,
	logger *zap.Logger,
) *EstimationService {
	return &EstimationService{
		datasets: datasets,
		cache:    cache,
		space:    space,
		workers:  workers,
		logger:   logger,
	}
}

// Estimate runs the theories over a stored dataset. Results are returned and never persisted.
func (s *EstimationService) Estimate(ctx context.Context, workspaceID uuid.UUID, in EstimateInput) ([]estimation.Response, error) {
	d, err := s.datasets.GetByID(ctx, in.DatasetID, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	subjects, err := s.datasets.Subjects(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	subjects, err = selectSubjects(subjects, in.Subjects)
	if err != nil {
		return nil, err
	}

	forced := d.ForcedChoice
	if in.ForcedChoice != nil {
		forced = *in.ForcedChoice
	}

	return s.Run(ctx, &estimation.Request{
		Subjects:           subjects,
		Theories:           in.Theories,
		ForcedChoice:       forced,
		DisableParallelism: in.DisableParallelism,
	})
}

// Run estimates a request that carries its own subjects.
func (s *EstimationService) Run(ctx context.Context, req *estimation.Request) ([]estimation.Response, error) {
	start := time.Now()
	resps, err := estimation.Run(ctx, s.cache, s.space, req, estimation.WithWorkers(s.workers))
	if err != nil {
		s.logger.Warn("estimation failed",
			zap.Int("subjects", len(req.Subjects)),
			zap.Int("theories", len(req.Theories)),
			zap.Error(err),
		)
		if isRejection(err) {
			return nil, fmt.Errorf("%w: %w", ErrEstimationRejected, err)
		}
		return nil, err
	}

	s.logger.Info("estimation finished",
		zap.Int("subjects", len(req.Subjects)),
		zap.Int("theories", len(req.Theories)),
		zap.Bool("parallel", !req.DisableParallelism),
		zap.Duration("duration", time.Since(start)),
	)
	return resps, nil
}

func isRejection(err error) bool {
	for _, target := range []error{
		estimation.ErrNoSubjects,
		estimation.ErrNoTheories,
		estimation.ErrNoInstances,
		theory.ErrTooManyAlternatives,
		theory.ErrUnsupportedTheory,
		theory.ErrDeferralInForcedChoice,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func selectSubjects(all []domain.Subject, names []string) ([]domain.Subject, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]int, len(all))
	for i := range all {
		byName[all[i].Name] = i
	}
	out := make([]domain.Subject, 0, len(names))
	for _, name := range names {
		i, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSubjectNotFound, name)
		}
		out = append(out, all[i])
	}
	return out, nil
}
