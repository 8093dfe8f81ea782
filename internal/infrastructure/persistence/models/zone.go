package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
)

// ZoneModel is the persistence model for the Zone aggregate root.
type ZoneModel struct {
	AggregateModel
	Code     string `gorm:"type:varchar(32);not null;uniqueIndex:idx_zones_code"`
	Name     string `gorm:"type:varchar(128);not null"`
	PlotType string `gorm:"type:varchar(16);not null;index:idx_zones_plot_type"`
}

// TableName returns the table name for GORM
func (ZoneModel) TableName() string {
	return "zones"
}

// ToDomain converts the persistence model to a domain Zone
func (m *ZoneModel) ToDomain() *stock.Zone {
	return &stock.Zone{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		PlotType:          stock.PlotType(m.PlotType),
	}
}

// ZoneModelFromDomain creates a new persistence model from a domain Zone
func ZoneModelFromDomain(z *stock.Zone) *ZoneModel {
	m := &ZoneModel{Code: z.Code, Name: z.Name, PlotType: string(z.PlotType)}
	m.FromDomainAggregateRoot(z.BaseAggregateRoot)
	return m
}

// ZonePlantingModel stores the planned quantity of one stock group. The
// group columns form the primary key.
type ZonePlantingModel struct {
	SpeciesID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	SizeLabel       string    `gorm:"type:varchar(32);primaryKey"`
	ZoneID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Grade           string    `gorm:"type:varchar(32);primaryKey"`
	PlannedQuantity int       `gorm:"not null;default:0"`
	UpdatedBy       string    `gorm:"type:varchar(64);not null;default:''"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ZonePlantingModel) TableName() string {
	return "zone_plantings"
}

// ToDomain converts the persistence model to a domain Planting
func (m *ZonePlantingModel) ToDomain() stock.Planting {
	return stock.Planting{
		Group: stock.GroupKey{
			SpeciesID: m.SpeciesID,
			SizeLabel: m.SizeLabel,
			ZoneID:    m.ZoneID,
			Grade:     m.Grade,
		},
		PlannedQuantity: m.PlannedQuantity,
		UpdatedBy:       m.UpdatedBy,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ZonePlantingModelFromDomain creates a new persistence model from a domain Planting
func ZonePlantingModelFromDomain(p *stock.Planting) *ZonePlantingModel {
	return &ZonePlantingModel{
		SpeciesID:       p.Group.SpeciesID,
		SizeLabel:       p.Group.SizeLabel,
		ZoneID:          p.Group.ZoneID,
		Grade:           p.Group.Grade,
		PlannedQuantity: p.PlannedQuantity,
		UpdatedBy:       p.UpdatedBy,
		UpdatedAt:       p.UpdatedAt,
	}
}
