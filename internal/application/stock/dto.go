package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
)

// UnitResponse is the read model of a unit
type UnitResponse struct {
	ID           uuid.UUID      `json:"id"`
	Code         string         `json:"code"`
	Status       stock.Status   `json:"status"`
	SpeciesID    uuid.UUID      `json:"species_id"`
	SizeLabel    string         `json:"size_label"`
	Grade        string         `json:"grade,omitempty"`
	HeightLabel  string         `json:"height_label,omitempty"`
	ZoneID       uuid.UUID      `json:"zone_id"`
	Group        string         `json:"group"`
	DealID       *string        `json:"deal_id,omitempty"`
	DigOrderID   *string        `json:"dig_order_id,omitempty"`
	TaggedBy     string         `json:"tagged_by,omitempty"`
	NextStatuses []stock.Status `json:"next_statuses"`
	Version      int            `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToUnitResponse converts a domain unit
func ToUnitResponse(u *stock.Unit) UnitResponse {
	return UnitResponse{
		ID:           u.ID,
		Code:         u.Code,
		Status:       u.Status,
		SpeciesID:    u.SpeciesID,
		SizeLabel:    u.SizeLabel,
		Grade:        u.Grade,
		HeightLabel:  u.HeightLabel,
		ZoneID:       u.ZoneID,
		Group:        u.GroupKey().String(),
		DealID:       u.DealID,
		DigOrderID:   u.DigOrderID,
		TaggedBy:     u.TaggedBy,
		NextStatuses: stock.NormalTargets(u.Status),
		Version:      u.Version,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// EventResponse is the read model of a ledger entry
type EventResponse struct {
	ID           uuid.UUID         `json:"id"`
	UnitID       uuid.UUID         `json:"unit_id"`
	Sequence     int               `json:"sequence"`
	EventType    stock.EventType   `json:"event_type"`
	OccurredAt   time.Time         `json:"occurred_at"`
	FromStatus   stock.Status      `json:"from_status"`
	ToStatus     stock.Status      `json:"to_status"`
	Actor        string            `json:"actor"`
	Source       string            `json:"source,omitempty"`
	ContextType  stock.ContextType `json:"context_type,omitempty"`
	ContextID    string            `json:"context_id,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	IsCorrection bool              `json:"is_correction"`
}

// ToEventResponse converts a ledger entry
func ToEventResponse(e *stock.Event) EventResponse {
	return EventResponse{
		ID:           e.ID,
		UnitID:       e.UnitID,
		Sequence:     e.Sequence,
		EventType:    e.Type,
		OccurredAt:   e.OccurredAt,
		FromStatus:   e.FromStatus,
		ToStatus:     e.ToStatus,
		Actor:        e.Actor,
		Source:       e.Source,
		ContextType:  e.ContextType,
		ContextID:    e.ContextID,
		Notes:        e.Notes,
		IsCorrection: e.IsCorrection,
	}
}

// TransitionRequest asks the lifecycle service to move a unit.
// ExpectedStatus, when set, is the caller's belief about the current status
// and is checked before anything else.
type TransitionRequest struct {
	UnitID         uuid.UUID
	ToStatus       stock.Status
	Notes          string
	Force          bool
	Actor          Actor
	Source         string
	ExpectedStatus stock.Status
	ContextType    stock.ContextType
	ContextID      string
	Classification *stock.ClassificationPatch
}

// TransitionResult reports the outcome of a transition. Event is nil for no-ops.
type TransitionResult struct {
	Unit           UnitResponse         `json:"unit"`
	Classification stock.Classification `json:"classification"`
	Event          *EventResponse       `json:"event,omitempty"`
}

// TagUnitRequest tags a new unit in a zone
type TagUnitRequest struct {
	Code        string
	SpeciesID   uuid.UUID
	SizeLabel   string
	Grade       string
	HeightLabel string
	ZoneID      uuid.UUID
	Actor       Actor
}

// ReclassifyRequest corrects classification attributes
type ReclassifyRequest struct {
	UnitID uuid.UUID
	Patch  stock.ClassificationPatch
	Actor  Actor
}

// RelocateRequest moves a unit to another zone
type RelocateRequest struct {
	UnitID uuid.UUID
	ZoneID uuid.UUID
	Actor  Actor
}

// ListUnitsRequest filters unit listings
type ListUnitsRequest struct {
	Filter stock.UnitFilter
	Page   int
	Size   int
}

// TimelinePage is one page of a unit's ledger, newest first
type TimelinePage struct {
	UnitID  uuid.UUID       `json:"unit_id"`
	Events  []EventResponse `json:"events"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
}

// ZoneResponse is the read model of a zone
type ZoneResponse struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	PlotType  stock.PlotType `json:"plot_type"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToZoneResponse converts a zone
func ToZoneResponse(z *stock.Zone) ZoneResponse {
	return ZoneResponse{ID: z.ID, Code: z.Code, Name: z.Name, PlotType: z.PlotType, CreatedAt: z.CreatedAt}
}

// PlantingResponse is the read model of a planting record
type PlantingResponse struct {
	Group           string    `json:"group"`
	ZoneID          uuid.UUID `json:"zone_id"`
	SpeciesID       uuid.UUID `json:"species_id"`
	SizeLabel       string    `json:"size_label"`
	Grade           string    `json:"grade,omitempty"`
	PlannedQuantity int       `json:"planned_quantity"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToPlantingResponse converts a planting record
func ToPlantingResponse(p *stock.Planting) PlantingResponse {
	return PlantingResponse{
		Group:           p.Group.String(),
		ZoneID:          p.Group.ZoneID,
		SpeciesID:       p.Group.SpeciesID,
		SizeLabel:       p.Group.SizeLabel,
		Grade:           p.Group.Grade,
		PlannedQuantity: p.PlannedQuantity,
		UpdatedBy:       p.UpdatedBy,
		UpdatedAt:       p.UpdatedAt,
	}
}

// HoldResponse is the read model of a pooled allocation
type HoldResponse struct {
	ID            uuid.UUID        `json:"id"`
	Group         string           `json:"group"`
	Quantity      int              `json:"quantity"`
	Bound         int              `json:"bound"`
	Remaining     int              `json:"remaining"`
	DealRef       string           `json:"deal_ref"`
	Actor         string           `json:"actor"`
	Status        stock.HoldStatus `json:"status"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	ReleasedAt    *time.Time       `json:"released_at,omitempty"`
	ReleaseReason string           `json:"release_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ToHoldResponse converts a hold
func ToHoldResponse(h *stock.Hold) HoldResponse {
	return HoldResponse{
		ID:            h.ID,
		Group:         h.Group.String(),
		Quantity:      h.Quantity,
		Bound:         h.Bound,
		Remaining:     h.Remaining(),
		DealRef:       h.DealRef,
		Actor:         h.Actor,
		Status:        h.Status,
		ExpiresAt:     h.ExpiresAt,
		ReleasedAt:    h.ReleasedAt,
		ReleaseReason: h.ReleaseReason,
		CreatedAt:     h.CreatedAt,
	}
}

// RollupResponse wraps a computed rollup
type RollupResponse struct {
	stock.RollupResult
	GeneratedAt time.Time `json:"generated_at"`
}
