package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormHoldRepository implements stock.HoldRepository using GORM
type GormHoldRepository struct {
	db *gorm.DB
}

// NewGormHoldRepository creates a new GormHoldRepository
func NewGormHoldRepository(db *gorm.DB) *GormHoldRepository {
	return &GormHoldRepository{db: db}
}

// FindByID finds a hold by its ID
func (r *GormHoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Hold, error) {
	var model models.AllocationHoldModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.NewNotFoundError("allocation", id)
		}
		return nil, fmt.Errorf("find allocation %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new hold
func (r *GormHoldRepository) Create(ctx context.Context, hold *stock.Hold) error {
	if err := r.db.WithContext(ctx).Create(models.AllocationHoldModelFromDomain(hold)).Error; err != nil {
		return fmt.Errorf("create allocation for %s: %w", hold.Group, err)
	}
	return nil
}

// SaveWithLock updates the hold if no one else changed it since it was read
func (r *GormHoldRepository) SaveWithLock(ctx context.Context, hold *stock.Hold) error {
	result := r.db.WithContext(ctx).
		Model(&models.AllocationHoldModel{}).
		Where("id = ? AND version = ?", hold.ID, hold.Version-1).
		Updates(map[string]any{
			"bound":          hold.Bound,
			"status":         string(hold.Status),
			"released_at":    hold.ReleasedAt,
			"release_reason": hold.ReleaseReason,
			"version":        hold.Version,
			"updated_at":     hold.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("save allocation %s: %w", hold.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindActive returns active holds matching the filter, expired or not
func (r *GormHoldRepository) FindActive(ctx context.Context, filter stock.RollupFilter) ([]stock.Hold, error) {
	var rows []models.AllocationHoldModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(stock.HoldActive)).
		Scopes(rollupFilterScope(filter)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find active allocations: %w", err)
	}
	return holdsToDomain(rows), nil
}

// FindActiveByGroup returns active holds of one group
func (r *GormHoldRepository) FindActiveByGroup(ctx context.Context, group stock.GroupKey) ([]stock.Hold, error) {
	var rows []models.AllocationHoldModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(stock.HoldActive)).
		Scopes(groupScope(group)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find active allocations in %s: %w", group, err)
	}
	return holdsToDomain(rows), nil
}

// FindExpired returns active holds whose deadline is at or before now,
// earliest deadline first
func (r *GormHoldRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]stock.Hold, error) {
	var rows []models.AllocationHoldModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", string(stock.HoldActive), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find expired allocations: %w", err)
	}
	return holdsToDomain(rows), nil
}

// List returns a page of holds, newest first
func (r *GormHoldRepository) List(ctx context.Context, filter stock.HoldFilter, page shared.Page) ([]stock.Hold, int64, error) {
	page = page.Normalize()
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.AllocationHoldModel{})
		if filter.Group != nil {
			q = q.Scopes(groupScope(*filter.Group))
		}
		if filter.DealRef != "" {
			q = q.Where("deal_ref = ?", filter.DealRef)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}
	var rows []models.AllocationHoldModel
	if err := query().Order("created_at DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}
	return holdsToDomain(rows), total, nil
}

func holdsToDomain(rows []models.AllocationHoldModel) []stock.Hold {
	out := make([]stock.Hold, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ stock.HoldRepository = (*GormHoldRepository)(nil)
