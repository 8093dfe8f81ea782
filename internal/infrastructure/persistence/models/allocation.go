package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
)

// AllocationHoldModel is the persistence model for the Hold aggregate root.
type AllocationHoldModel struct {
	AggregateModel
	SpeciesID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_holds_group,priority:1"`
	SizeLabel     string     `gorm:"type:varchar(32);not null;index:idx_holds_group,priority:2"`
	ZoneID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_holds_group,priority:3"`
	Grade         string     `gorm:"type:varchar(32);not null;default:'';index:idx_holds_group,priority:4"`
	Quantity      int        `gorm:"not null"`
	Bound         int        `gorm:"not null;default:0"`
	DealRef       string     `gorm:"type:varchar(64);not null;index:idx_holds_deal_ref"`
	Actor         string     `gorm:"type:varchar(64);not null;default:''"`
	Status        string     `gorm:"type:varchar(16);not null;index:idx_holds_status_expiry,priority:1"`
	ExpiresAt     *time.Time `gorm:"index:idx_holds_status_expiry,priority:2"`
	ReleasedAt    *time.Time
	ReleaseReason string `gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the table name for GORM
func (AllocationHoldModel) TableName() string {
	return "allocation_holds"
}

// ToDomain converts the persistence model to a domain Hold
func (m *AllocationHoldModel) ToDomain() *stock.Hold {
	return &stock.Hold{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Group: stock.GroupKey{
			SpeciesID: m.SpeciesID,
			SizeLabel: m.SizeLabel,
			ZoneID:    m.ZoneID,
			Grade:     m.Grade,
		},
		Quantity:      m.Quantity,
		Bound:         m.Bound,
		DealRef:       m.DealRef,
		Actor:         m.Actor,
		Status:        stock.HoldStatus(m.Status),
		ExpiresAt:     m.ExpiresAt,
		ReleasedAt:    m.ReleasedAt,
		ReleaseReason: m.ReleaseReason,
	}
}

// FromDomain populates the persistence model from a domain Hold
func (m *AllocationHoldModel) FromDomain(h *stock.Hold) {
	m.FromDomainAggregateRoot(h.BaseAggregateRoot)
	m.SpeciesID = h.Group.SpeciesID
	m.SizeLabel = h.Group.SizeLabel
	m.ZoneID = h.Group.ZoneID
	m.Grade = h.Group.Grade
	m.Quantity = h.Quantity
	m.Bound = h.Bound
	m.DealRef = h.DealRef
	m.Actor = h.Actor
	m.Status = string(h.Status)
	m.ExpiresAt = h.ExpiresAt
	m.ReleasedAt = h.ReleasedAt
	m.ReleaseReason = h.ReleaseReason
}

// AllocationHoldModelFromDomain creates a new persistence model from a domain Hold
func AllocationHoldModelFromDomain(h *stock.Hold) *AllocationHoldModel {
	m := &AllocationHoldModel{}
	m.FromDomain(h)
	return m
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{
		&ZoneModel{},
		&UnitModel{},
		&UnitEventModel{},
		&ZonePlantingModel{},
		&AllocationHoldModel{},
	}
}
