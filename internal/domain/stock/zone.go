package stock

import (
	"strings"
	"time"

	"github.com/nursery/backend/internal/domain/shared"
)

// PlotType describes how a zone holds its trees
type PlotType string

const (
	PlotField      PlotType = "field"
	PlotContainer  PlotType = "container"
	PlotGreenhouse PlotType = "greenhouse"
	PlotHolding    PlotType = "holding"
)

// IsValid reports whether t is a known plot type
func (t PlotType) IsValid() bool {
	switch t {
	case PlotField, PlotContainer, PlotGreenhouse, PlotHolding:
		return true
	}
	return false
}

// Zone is a plot that physically holds units
type Zone struct {
	shared.BaseAggregateRoot
	Code     string
	Name     string
	PlotType PlotType
}

// NewZone creates a zone
func NewZone(code, name string, plotType PlotType) (*Zone, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, NewValidationError("zone code cannot be empty")
	}
	if len(code) > 32 {
		return nil, NewValidationError("zone code cannot exceed 32 characters")
	}
	if !plotType.IsValid() {
		return nil, NewValidationError("unknown plot type " + string(plotType))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	return &Zone{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		PlotType:          plotType,
	}, nil
}

// Planting is the externally inventoried count of trees for one group.
// The gap between it and the tagged units is the untagged backlog.
type Planting struct {
	Group           GroupKey
	PlannedQuantity int
	UpdatedBy       string
	UpdatedAt       time.Time
}

// NewPlanting validates and builds a planting record
func NewPlanting(group GroupKey, planned int, updatedBy string) (*Planting, error) {
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if planned < 0 {
		return nil, NewValidationError("planned quantity cannot be negative")
	}
	return &Planting{
		Group:           group,
		PlannedQuantity: planned,
		UpdatedBy:       updatedBy,
		UpdatedAt:       time.Now(),
	}, nil
}
