package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/prest/internal/domain"
	"go.uber.org/zap"
)

const defaultRetentionInterval = 1 * time.Hour

// RetentionService deletes datasets older than the retention period on a
// periodic schedule.
type RetentionService struct {
	datasets  domain.DatasetStore
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRetentionService(ds domain.DatasetStore, retention time.Duration, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		datasets:  ds,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		interval:  defaultRetentionInterval,
		stopCh:    make(chan struct{}),
	}
}

func (s *RetentionService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the sweep on a periodic schedule in a background goroutine.
func (s *RetentionService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("dataset retention started",
			zap.Duration("interval", s.interval),
			zap.Duration("retention", s.retention))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, _ = s.Sweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("dataset retention stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *RetentionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Sweep deletes every dataset created before now minus the retention period.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.datasets.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to delete expired datasets", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("deleted expired datasets",
			zap.Int64("count", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
