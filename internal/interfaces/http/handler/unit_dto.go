package handler

import (
	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/interfaces/http/dto"
)

// TagUnitRequest is the body of POST /units
type TagUnitRequest struct {
	Code        string `json:"code" binding:"required,max=64"`
	SpeciesID   string `json:"species_id" binding:"required,uuid"`
	SizeLabel   string `json:"size_label" binding:"required,max=32"`
	Grade       string `json:"grade" binding:"max=32"`
	HeightLabel string `json:"height_label" binding:"max=32"`
	ZoneID      string `json:"zone_id" binding:"required,uuid"`
}

// ClassificationPatchRequest carries optional classification corrections.
// Absent fields are left untouched; an empty grade clears it.
type ClassificationPatchRequest struct {
	SpeciesID   *string `json:"species_id" binding:"omitempty,uuid"`
	SizeLabel   *string `json:"size_label" binding:"omitempty,max=32"`
	Grade       *string `json:"grade" binding:"omitempty,max=32"`
	HeightLabel *string `json:"height_label" binding:"omitempty,max=32"`
}

func (r *ClassificationPatchRequest) toPatch() *stock.ClassificationPatch {
	if r == nil {
		return nil
	}
	patch := &stock.ClassificationPatch{
		SizeLabel:   r.SizeLabel,
		Grade:       r.Grade,
		HeightLabel: r.HeightLabel,
	}
	if r.SpeciesID != nil {
		id := uuid.MustParse(*r.SpeciesID)
		patch.SpeciesID = &id
	}
	return patch
}

// TransitionUnitRequest is the body of POST /units/:id/transition
type TransitionUnitRequest struct {
	ToStatus       string                      `json:"to_status" binding:"required,lifecycle_status"`
	ExpectedStatus string                      `json:"expected_status" binding:"omitempty,lifecycle_status"`
	Notes          string                      `json:"notes" binding:"max=2000"`
	Force          bool                        `json:"force"`
	Source         string                      `json:"source" binding:"max=64"`
	ContextType    string                      `json:"context_type" binding:"omitempty,oneof=deal dig_order shipment allocation_hold"`
	ContextID      string                      `json:"context_id" binding:"max=64"`
	Classification *ClassificationPatchRequest `json:"classification"`
}

// RelocateUnitRequest is the body of POST /units/:id/relocate
type RelocateUnitRequest struct {
	ZoneID string `json:"zone_id" binding:"required,uuid"`
}

// ListUnitsQuery filters GET /units. A present but empty grade matches
// ungraded units only.
type ListUnitsQuery struct {
	dto.PageRequest
	ZoneID    string   `form:"zone_id" binding:"omitempty,uuid"`
	SpeciesID string   `form:"species_id" binding:"omitempty,uuid"`
	SizeLabel string   `form:"size_label" binding:"max=32"`
	Grade     *string  `form:"grade" binding:"omitempty,max=32"`
	PlotType  string   `form:"plot_type" binding:"omitempty,plot_type"`
	Status    []string `form:"status" binding:"omitempty,dive,lifecycle_status"`
	Search    string   `form:"search" binding:"max=64"`
}

func (q ListUnitsQuery) filter() stock.UnitFilter {
	f := stock.UnitFilter{
		RollupFilter: stock.RollupFilter{
			ZoneID:    optionalUUID(q.ZoneID),
			SpeciesID: optionalUUID(q.SpeciesID),
			SizeLabel: q.SizeLabel,
			PlotType:  stock.PlotType(q.PlotType),
		},
		Grade:  q.Grade,
		Search: q.Search,
	}
	for _, s := range q.Status {
		f.Statuses = append(f.Statuses, boundStatus(s))
	}
	return f
}

// TimelineQuery pages GET /units/:id/timeline
type TimelineQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// boundStatus canonicalizes a status the binding validator already accepted.
// An empty value stays empty.
func boundStatus(raw string) stock.Status {
	st, _ := stock.ParseStatus(raw)
	return st
}
