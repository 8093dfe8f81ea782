package stock

import (
	"context"
	"time"

	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// DefaultExpirationBatch bounds how many holds one sweep closes
const DefaultExpirationBatch = 500

// HoldExpirationService closes pooled holds whose deadline has passed.
// Expired holds already stop counting in rollups; the sweep only records
// the terminal state and publishes the closing events.
type HoldExpirationService struct {
	holdRepo       stock.HoldRepository
	eventPublisher shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
	batch          int
	now            func() time.Time
}

// NewHoldExpirationService creates a new HoldExpirationService
func NewHoldExpirationService(holdRepo stock.HoldRepository, logger *zap.Logger) *HoldExpirationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoldExpirationService{
		holdRepo: holdRepo,
		metrics:  noopMetrics{},
		logger:   logger,
		batch:    DefaultExpirationBatch,
		now:      time.Now,
	}
}

// SetEventPublisher sets the publisher for domain events
func (s *HoldExpirationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *HoldExpirationService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// ExpiredHoldStats summarizes one sweep
type ExpiredHoldStats struct {
	TotalExpired    int       `json:"total_expired"`
	SuccessReleased int       `json:"success_released"`
	FailedReleases  int       `json:"failed_releases"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ReleaseExpired expires every active hold past its deadline
func (s *HoldExpirationService) ReleaseExpired(ctx context.Context) (*ExpiredHoldStats, error) {
	now := s.now()
	stats := &ExpiredHoldStats{ProcessedAt: now}

	holds, err := s.holdRepo.FindExpired(ctx, now, s.batch)
	if err != nil {
		s.logger.Error("Failed to find expired allocations", zap.Error(err))
		return nil, err
	}
	stats.TotalExpired = len(holds)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired allocations found")
		return stats, nil
	}

	for i := range holds {
		hold := &holds[i]
		if err := s.expire(ctx, hold, now); err != nil {
			s.logger.Error("Failed to expire allocation",
				zap.String("hold_id", hold.ID.String()),
				zap.String("deal_ref", hold.DealRef),
				zap.Error(err),
			)
			stats.FailedReleases++
			continue
		}
		stats.SuccessReleased++
	}

	s.metrics.RecordHoldsExpired(ctx, stats.SuccessReleased)
	s.logger.Info("Completed expired allocation release",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.SuccessReleased),
		zap.Int("failed", stats.FailedReleases),
	)
	return stats, nil
}

func (s *HoldExpirationService) expire(ctx context.Context, hold *stock.Hold, now time.Time) error {
	if err := hold.Expire(now); err != nil {
		return err
	}
	if err := s.holdRepo.SaveWithLock(ctx, hold); err != nil {
		return err
	}
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, hold.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish allocation closed event",
				zap.String("hold_id", hold.ID.String()),
				zap.Error(err),
			)
		}
	}
	hold.ClearDomainEvents()
	return nil
}

// Run sweeps every interval until ctx is cancelled
func (s *HoldExpirationService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReleaseExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Allocation sweep failed", zap.Error(err))
			}
		}
	}
}
