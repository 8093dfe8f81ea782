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

// GormEventRepository implements the append-only ledger using GORM.
// It exposes no update or delete.
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GormEventRepository
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// Append inserts one ledger row. A duplicate (unit, sequence) means two
// writers produced the same version and is reported as a conflict.
func (r *GormEventRepository) Append(ctx context.Context, event *stock.Event) error {
	if err := r.db.WithContext(ctx).Create(models.UnitEventModelFromDomain(event)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("append ledger event for unit %s: %w", event.UnitID, err)
	}
	return nil
}

// Timeline returns events newest first
func (r *GormEventRepository) Timeline(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]stock.Event, error) {
	var rows []models.UnitEventModel
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("occurred_at DESC").
		Order("sequence DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load timeline of unit %s: %w", unitID, err)
	}
	return eventsToDomain(rows), nil
}

// ListAll returns the full ledger of a unit in replay order
func (r *GormEventRepository) ListAll(ctx context.Context, unitID uuid.UUID) ([]stock.Event, error) {
	var rows []models.UnitEventModel
	if err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ledger of unit %s: %w", unitID, err)
	}
	return eventsToDomain(rows), nil
}

// Count returns the number of ledger entries of a unit
func (r *GormEventRepository) Count(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.UnitEventModel{}).Where("unit_id = ?", unitID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count ledger of unit %s: %w", unitID, err)
	}
	return n, nil
}

func eventsToDomain(rows []models.UnitEventModel) []stock.Event {
	out := make([]stock.Event, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ stock.EventRepository = (*GormEventRepository)(nil)
