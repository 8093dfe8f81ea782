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
)

// GormUnitRepository implements stock.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Unit, error) {
	var model models.UnitModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.NewNotFoundError("unit", id)
		}
		return nil, fmt.Errorf("find unit %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a unit by its tag code
func (r *GormUnitRepository) FindByCode(ctx context.Context, code string) (*stock.Unit, error) {
	var model models.UnitModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.NewNotFoundError("unit", code)
		}
		return nil, fmt.Errorf("find unit by code %q: %w", code, err)
	}
	return model.ToDomain(), nil
}

// FindReadyInGroup returns up to limit ready_for_sale units of the group,
// oldest tag first
func (r *GormUnitRepository) FindReadyInGroup(ctx context.Context, group stock.GroupKey, limit int) ([]stock.Unit, error) {
	var rows []models.UnitModel
	err := r.db.WithContext(ctx).
		Scopes(groupScope(group)).
		Where("status = ?", string(stock.StatusReadyForSale)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find ready units in %s: %w", group, err)
	}
	return unitsToDomain(rows), nil
}

// List returns a page of units matching the filter, ordered by code
func (r *GormUnitRepository) List(ctx context.Context, filter stock.UnitFilter, page shared.Page) ([]stock.Unit, int64, error) {
	page = page.Normalize()
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.UnitModel{}).Scopes(unitFilterScope(filter))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count units: %w", err)
	}

	var rows []models.UnitModel
	if err := query().Order("code ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}
	return unitsToDomain(rows), total, nil
}

type snapshotRow struct {
	SpeciesID uuid.UUID
	SizeLabel string
	ZoneID    uuid.UUID
	Grade     string
	Status    string
}

// Snapshot projects group and status of every matching unit
func (r *GormUnitRepository) Snapshot(ctx context.Context, filter stock.RollupFilter) ([]stock.UnitSnapshot, error) {
	var rows []snapshotRow
	err := r.db.WithContext(ctx).
		Model(&models.UnitModel{}).
		Select("species_id, size_label, zone_id, grade, status").
		Scopes(rollupFilterScope(filter)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("unit snapshot: %w", err)
	}
	out := make([]stock.UnitSnapshot, len(rows))
	for i, row := range rows {
		out[i] = stock.UnitSnapshot{
			Group: stock.GroupKey{
				SpeciesID: row.SpeciesID,
				SizeLabel: row.SizeLabel,
				ZoneID:    row.ZoneID,
				Grade:     row.Grade,
			},
			Status: stock.Status(row.Status),
		}
	}
	return out, nil
}

// Create inserts a newly tagged unit
func (r *GormUnitRepository) Create(ctx context.Context, unit *stock.Unit) error {
	if err := r.db.WithContext(ctx).Create(models.UnitModelFromDomain(unit)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("tag code %s is already in use", unit.Code))
		}
		return fmt.Errorf("create unit %s: %w", unit.Code, err)
	}
	return nil
}

// SaveWithLock writes the unit only when the stored row still carries the
// previous version and the expected status. Zero affected rows means another
// writer won; the caller gets a ConflictError and rolls back.
func (r *GormUnitRepository) SaveWithLock(ctx context.Context, unit *stock.Unit, expected stock.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.UnitModel{}).
		Where("id = ? AND version = ? AND status = ?", unit.ID, unit.Version-1, string(expected)).
		Updates(map[string]any{
			"status":       string(unit.Status),
			"species_id":   unit.SpeciesID,
			"size_label":   unit.SizeLabel,
			"grade":        unit.Grade,
			"height_label": unit.HeightLabel,
			"zone_id":      unit.ZoneID,
			"deal_id":      unit.DealID,
			"dig_order_id": unit.DigOrderID,
			"version":      unit.Version,
			"updated_at":   unit.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("save unit %s: %w", unit.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &stock.ConflictError{UnitID: unit.ID, Expected: expected}
	}
	return nil
}

// ExistsByCode checks whether a tag code is taken
func (r *GormUnitRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UnitModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check unit code %q: %w", code, err)
	}
	return count > 0, nil
}

func unitsToDomain(rows []models.UnitModel) []stock.Unit {
	out := make([]stock.Unit, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ stock.UnitRepository = (*GormUnitRepository)(nil)
