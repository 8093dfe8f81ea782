package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// Timeline paging bounds
const (
	DefaultTimelineLimit = 50
	MaxTimelineLimit     = 200
)

// LedgerService reads the append-only status ledger
type LedgerService struct {
	unitRepo  stock.UnitRepository
	eventRepo stock.EventRepository
	logger    *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(unitRepo stock.UnitRepository, eventRepo stock.EventRepository, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{unitRepo: unitRepo, eventRepo: eventRepo, logger: logger}
}

// Timeline returns a unit's events newest first. The limit is clamped to
// [1, MaxTimelineLimit] and defaults to DefaultTimelineLimit.
func (s *LedgerService) Timeline(ctx context.Context, unitID uuid.UUID, limit, offset int) (*TimelinePage, error) {
	if _, err := s.unitRepo.FindByID(ctx, unitID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultTimelineLimit
	case limit > MaxTimelineLimit:
		limit = MaxTimelineLimit
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.eventRepo.Timeline(ctx, unitID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.eventRepo.Count(ctx, unitID)
	if err != nil {
		return nil, err
	}

	page := &TimelinePage{
		UnitID: unitID,
		Events: make([]EventResponse, len(events)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range events {
		page.Events[i] = ToEventResponse(&events[i])
	}
	page.HasMore = int64(offset+len(events)) < total
	return page, nil
}

// Verify replays the ledger and compares it with the cached unit status
func (s *LedgerService) Verify(ctx context.Context, unitID uuid.UUID) (*stock.ReplayReport, error) {
	unit, err := s.unitRepo.FindByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListAll(ctx, unitID)
	if err != nil {
		return nil, err
	}
	report := stock.Replay(unitID, unit.Status, events)
	if !report.Consistent {
		s.logger.Warn("Ledger replay does not match cached status",
			zap.String("unit_id", unitID.String()),
			zap.String("cached", string(report.Cached)),
			zap.String("replayed", string(report.Replayed)),
			zap.Int("gaps", len(report.Gaps)),
		)
	}
	return &report, nil
}
