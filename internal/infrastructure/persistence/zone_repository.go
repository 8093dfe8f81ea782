package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormZoneRepository implements stock.ZoneRepository using GORM
type GormZoneRepository struct {
	db *gorm.DB
}

// NewGormZoneRepository creates a new GormZoneRepository
func NewGormZoneRepository(db *gorm.DB) *GormZoneRepository {
	return &GormZoneRepository{db: db}
}

// FindByID finds a zone by its ID
func (r *GormZoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Zone, error) {
	var model models.ZoneModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.NewNotFoundError("zone", id)
		}
		return nil, fmt.Errorf("find zone %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// ExistsByCode checks whether a zone code is taken
func (r *GormZoneRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ZoneModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check zone code %q: %w", code, err)
	}
	return count > 0, nil
}

// List returns zones ordered by code, optionally of one plot type
func (r *GormZoneRepository) List(ctx context.Context, plotType stock.PlotType) ([]stock.Zone, error) {
	query := r.db.WithContext(ctx).Order("code ASC")
	if plotType != "" {
		query = query.Where("plot_type = ?", string(plotType))
	}
	var rows []models.ZoneModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	out := make([]stock.Zone, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a zone
func (r *GormZoneRepository) Create(ctx context.Context, zone *stock.Zone) error {
	if err := r.db.WithContext(ctx).Create(models.ZoneModelFromDomain(zone)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("zone code %s is already in use", zone.Code))
		}
		return fmt.Errorf("create zone %s: %w", zone.Code, err)
	}
	return nil
}

// GormPlantingRepository implements stock.PlantingRepository using GORM
type GormPlantingRepository struct {
	db *gorm.DB
}

// NewGormPlantingRepository creates a new GormPlantingRepository
func NewGormPlantingRepository(db *gorm.DB) *GormPlantingRepository {
	return &GormPlantingRepository{db: db}
}

// Upsert sets the planned quantity of a group, replacing any previous value
func (r *GormPlantingRepository) Upsert(ctx context.Context, planting *stock.Planting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "species_id"}, {Name: "size_label"}, {Name: "zone_id"}, {Name: "grade"}},
			DoUpdates: clause.AssignmentColumns([]string{"planned_quantity", "updated_by", "updated_at"}),
		}).
		Create(models.ZonePlantingModelFromDomain(planting)).Error
	if err != nil {
		return fmt.Errorf("upsert planting for %s: %w", planting.Group, err)
	}
	return nil
}

// Find returns plantings matching the filter
func (r *GormPlantingRepository) Find(ctx context.Context, filter stock.RollupFilter) ([]stock.Planting, error) {
	var rows []models.ZonePlantingModel
	if err := r.db.WithContext(ctx).Scopes(rollupFilterScope(filter)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find plantings: %w", err)
	}
	out := make([]stock.Planting, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ stock.ZoneRepository     = (*GormZoneRepository)(nil)
	_ stock.PlantingRepository = (*GormPlantingRepository)(nil)
)
