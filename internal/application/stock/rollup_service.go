package stock

import (
	"context"
	"time"

	"github.com/nursery/backend/internal/domain/stock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RollupService derives group counts from the current unit statuses.
// Nothing here is stored; every call recomputes from the source rows.
type RollupService struct {
	unitRepo     stock.UnitRepository
	plantingRepo stock.PlantingRepository
	holdRepo     stock.HoldRepository
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewRollupService creates a new RollupService
func NewRollupService(
	unitRepo stock.UnitRepository,
	plantingRepo stock.PlantingRepository,
	holdRepo stock.HoldRepository,
	logger *zap.Logger,
) *RollupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupService{
		unitRepo:     unitRepo,
		plantingRepo: plantingRepo,
		holdRepo:     holdRepo,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
	}
}

// Compute returns rows, species summaries and warnings for the filter
func (s *RollupService) Compute(ctx context.Context, filter stock.RollupFilter) (*RollupResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stock.Rollup")
	defer span.End()

	snap, err := s.Snapshot(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := stock.ComputeRollup(snap)
	span.SetAttributes(
		attribute.Int("rollup.rows", len(result.Rows)),
		attribute.Int("rollup.warnings", len(result.Warnings)),
	)
	if len(result.Warnings) > 0 {
		s.logger.Debug("Rollup produced consistency warnings", zap.Int("count", len(result.Warnings)))
	}
	return &RollupResponse{RollupResult: result, GeneratedAt: snap.At}, nil
}

// Snapshot loads the inputs of a rollup
func (s *RollupService) Snapshot(ctx context.Context, filter stock.RollupFilter) (stock.RollupSnapshot, error) {
	return s.snapshot(ctx, filter, func(ctx context.Context) ([]stock.Hold, error) {
		return s.holdRepo.FindActive(ctx, filter)
	})
}

func (s *RollupService) snapshot(ctx context.Context, filter stock.RollupFilter, activeHolds func(context.Context) ([]stock.Hold, error)) (stock.RollupSnapshot, error) {
	units, err := s.unitRepo.Snapshot(ctx, filter)
	if err != nil {
		return stock.RollupSnapshot{}, err
	}
	plantings, err := s.plantingRepo.Find(ctx, filter)
	if err != nil {
		return stock.RollupSnapshot{}, err
	}
	var holds []stock.Hold
	if s.holdRepo != nil {
		holds, err = activeHolds(ctx)
		if err != nil {
			return stock.RollupSnapshot{}, err
		}
	}
	return stock.RollupSnapshot{
		Units:     units,
		Plantings: plantings,
		Holds:     holds,
		At:        s.now(),
	}, nil
}

// GroupMeasures computes the measures of a single group
func (s *RollupService) GroupMeasures(ctx context.Context, group stock.GroupKey) (stock.Measures, error) {
	zoneID := group.ZoneID
	speciesID := group.SpeciesID
	filter := stock.RollupFilter{ZoneID: &zoneID, SpeciesID: &speciesID, SizeLabel: group.SizeLabel}
	snap, err := s.snapshot(ctx, filter, func(ctx context.Context) ([]stock.Hold, error) {
		return s.holdRepo.FindActiveByGroup(ctx, group)
	})
	if err != nil {
		return stock.Measures{}, err
	}
	for _, row := range stock.ComputeRollup(snap).Rows {
		if row.Key == group {
			return row.Measures, nil
		}
	}
	return stock.Measures{}, nil
}
