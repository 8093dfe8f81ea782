package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// CreateZoneRequest registers a growing area
type CreateZoneRequest struct {
	Code     string
	Name     string
	PlotType stock.PlotType
}

// SetPlantingRequest records the planned quantity of one group
type SetPlantingRequest struct {
	ZoneID          uuid.UUID
	SpeciesID       uuid.UUID
	SizeLabel       string
	Grade           string
	PlannedQuantity int
	Actor           Actor
}

// ZoneService manages zones and their planting records
type ZoneService struct {
	zoneRepo     stock.ZoneRepository
	plantingRepo stock.PlantingRepository
	logger       *zap.Logger
}

// NewZoneService creates a new ZoneService
func NewZoneService(zoneRepo stock.ZoneRepository, plantingRepo stock.PlantingRepository, logger *zap.Logger) *ZoneService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZoneService{zoneRepo: zoneRepo, plantingRepo: plantingRepo, logger: logger}
}

// Create registers a new zone with a unique code
func (s *ZoneService) Create(ctx context.Context, req CreateZoneRequest) (*ZoneResponse, error) {
	zone, err := stock.NewZone(req.Code, req.Name, req.PlotType)
	if err != nil {
		return nil, err
	}
	exists, err := s.zoneRepo.ExistsByCode(ctx, zone.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "zone code "+zone.Code+" is already in use")
	}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		return nil, err
	}
	s.logger.Info("Zone created", zap.String("zone_id", zone.ID.String()), zap.String("code", zone.Code))
	resp := ToZoneResponse(zone)
	return &resp, nil
}

// List returns zones, optionally of one plot type
func (s *ZoneService) List(ctx context.Context, plotType stock.PlotType) ([]ZoneResponse, error) {
	if plotType != "" && !plotType.IsValid() {
		return nil, stock.NewValidationError("unknown plot type " + string(plotType))
	}
	zones, err := s.zoneRepo.List(ctx, plotType)
	if err != nil {
		return nil, err
	}
	out := make([]ZoneResponse, len(zones))
	for i := range zones {
		out[i] = ToZoneResponse(&zones[i])
	}
	return out, nil
}

// SetPlanting upserts the planned quantity for a group in a zone
func (s *ZoneService) SetPlanting(ctx context.Context, req SetPlantingRequest) (*PlantingResponse, error) {
	if _, err := s.zoneRepo.FindByID(ctx, req.ZoneID); err != nil {
		return nil, err
	}
	planting, err := stock.NewPlanting(stock.GroupKey{
		SpeciesID: req.SpeciesID,
		SizeLabel: req.SizeLabel,
		ZoneID:    req.ZoneID,
		Grade:     req.Grade,
	}, req.PlannedQuantity, req.Actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.plantingRepo.Upsert(ctx, planting); err != nil {
		return nil, err
	}
	resp := ToPlantingResponse(planting)
	return &resp, nil
}
