package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
)

// UnitModel is the persistence model for the Unit aggregate root.
type UnitModel struct {
	AggregateModel
	Code        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_units_code"`
	Status      string    `gorm:"type:varchar(32);not null;index:idx_units_status"`
	SpeciesID   uuid.UUID `gorm:"type:uuid;not null;index:idx_units_group,priority:1"`
	SizeLabel   string    `gorm:"type:varchar(32);not null;index:idx_units_group,priority:2"`
	ZoneID      uuid.UUID `gorm:"type:uuid;not null;index:idx_units_group,priority:3"`
	Grade       string    `gorm:"type:varchar(32);not null;default:'';index:idx_units_group,priority:4"`
	HeightLabel string    `gorm:"type:varchar(32);not null;default:''"`
	DealID      *string   `gorm:"type:varchar(64)"`
	DigOrderID  *string   `gorm:"type:varchar(64)"`
	TaggedBy    string    `gorm:"type:varchar(64);not null;default:''"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// ToDomain converts the persistence model to a domain Unit
func (m *UnitModel) ToDomain() *stock.Unit {
	return &stock.Unit{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Code:              m.Code,
		Status:            stock.Status(m.Status),
		SpeciesID:         m.SpeciesID,
		SizeLabel:         m.SizeLabel,
		Grade:             m.Grade,
		HeightLabel:       m.HeightLabel,
		ZoneID:            m.ZoneID,
		DealID:            m.DealID,
		DigOrderID:        m.DigOrderID,
		TaggedBy:          m.TaggedBy,
	}
}

// FromDomain populates the persistence model from a domain Unit
func (m *UnitModel) FromDomain(u *stock.Unit) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Code = u.Code
	m.Status = string(u.Status)
	m.SpeciesID = u.SpeciesID
	m.SizeLabel = u.SizeLabel
	m.Grade = u.Grade
	m.HeightLabel = u.HeightLabel
	m.ZoneID = u.ZoneID
	m.DealID = u.DealID
	m.DigOrderID = u.DigOrderID
	m.TaggedBy = u.TaggedBy
}

// UnitModelFromDomain creates a new persistence model from a domain Unit
func UnitModelFromDomain(u *stock.Unit) *UnitModel {
	m := &UnitModel{}
	m.FromDomain(u)
	return m
}

// UnitEventModel is one ledger row. Rows are inserted and never updated.
type UnitEventModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	UnitID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unit_events_sequence,priority:1;index:idx_unit_events_timeline,priority:1"`
	Sequence     int       `gorm:"not null;uniqueIndex:idx_unit_events_sequence,priority:2"`
	EventType    string    `gorm:"type:varchar(32);not null"`
	OccurredAt   time.Time `gorm:"not null;index:idx_unit_events_timeline,priority:2"`
	FromStatus   string    `gorm:"type:varchar(32);not null"`
	ToStatus     string    `gorm:"type:varchar(32);not null"`
	Actor        string    `gorm:"type:varchar(64);not null;default:''"`
	Source       string    `gorm:"type:varchar(64);not null;default:''"`
	ContextType  string    `gorm:"type:varchar(32);not null;default:''"`
	ContextID    string    `gorm:"type:varchar(64);not null;default:''"`
	Notes        string    `gorm:"type:text;not null;default:''"`
	IsCorrection bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (UnitEventModel) TableName() string {
	return "unit_events"
}

// ToDomain converts the ledger row to a domain Event
func (m *UnitEventModel) ToDomain() stock.Event {
	return stock.Event{
		ID:           m.ID,
		UnitID:       m.UnitID,
		Sequence:     m.Sequence,
		Type:         stock.EventType(m.EventType),
		OccurredAt:   m.OccurredAt,
		FromStatus:   stock.Status(m.FromStatus),
		ToStatus:     stock.Status(m.ToStatus),
		Actor:        m.Actor,
		Source:       m.Source,
		ContextType:  stock.ContextType(m.ContextType),
		ContextID:    m.ContextID,
		Notes:        m.Notes,
		IsCorrection: m.IsCorrection,
	}
}

// UnitEventModelFromDomain creates a ledger row from a domain Event
func UnitEventModelFromDomain(e *stock.Event) *UnitEventModel {
	return &UnitEventModel{
		ID:           e.ID,
		UnitID:       e.UnitID,
		Sequence:     e.Sequence,
		EventType:    string(e.Type),
		OccurredAt:   e.OccurredAt,
		FromStatus:   string(e.FromStatus),
		ToStatus:     string(e.ToStatus),
		Actor:        e.Actor,
		Source:       e.Source,
		ContextType:  string(e.ContextType),
		ContextID:    e.ContextID,
		Notes:        e.Notes,
		IsCorrection: e.IsCorrection,
	}
}
