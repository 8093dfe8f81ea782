package stock

import (
	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
)

// Aggregate type names
const (
	AggregateTypeUnit = "Unit"
	AggregateTypeHold = "AllocationHold"
)

// Domain event types
const (
	EventTypeUnitTagged        = "UnitTagged"
	EventTypeUnitStatusChanged = "UnitStatusChanged"
	EventTypeUnitReclassified  = "UnitReclassified"
	EventTypeUnitRelocated     = "UnitRelocated"
	EventTypeStockAllocated    = "StockAllocated"
	EventTypeHoldUnitBound     = "AllocationUnitBound"
	EventTypeHoldClosed        = "AllocationClosed"
)

// UnitTaggedEvent is published when a tree is tagged into the system
type UnitTaggedEvent struct {
	shared.BaseDomainEvent
	Code  string   `json:"code"`
	Group GroupKey `json:"group"`
}

// NewUnitTaggedEvent creates a UnitTaggedEvent
func NewUnitTaggedEvent(u *Unit) *UnitTaggedEvent {
	return &UnitTaggedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitTagged, AggregateTypeUnit, u.ID),
		Code:            u.Code,
		Group:           u.GroupKey(),
	}
}

// UnitStatusChangedEvent mirrors a ledger entry for downstream consumers
type UnitStatusChangedEvent struct {
	shared.BaseDomainEvent
	LedgerEventID uuid.UUID   `json:"ledger_event_id"`
	Code          string      `json:"code"`
	Group         GroupKey    `json:"group"`
	FromStatus    Status      `json:"from_status"`
	ToStatus      Status      `json:"to_status"`
	IsCorrection  bool        `json:"is_correction"`
	Actor         string      `json:"actor"`
	ContextType   ContextType `json:"context_type,omitempty"`
	ContextID     string      `json:"context_id,omitempty"`
}

// NewUnitStatusChangedEvent creates a UnitStatusChangedEvent
func NewUnitStatusChangedEvent(u *Unit, e *Event) *UnitStatusChangedEvent {
	return &UnitStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitStatusChanged, AggregateTypeUnit, u.ID),
		LedgerEventID:   e.ID,
		Code:            u.Code,
		Group:           u.GroupKey(),
		FromStatus:      e.FromStatus,
		ToStatus:        e.ToStatus,
		IsCorrection:    e.IsCorrection,
		Actor:           e.Actor,
		ContextType:     e.ContextType,
		ContextID:       e.ContextID,
	}
}

// UnitReclassifiedEvent is published when classification attributes change
type UnitReclassifiedEvent struct {
	shared.BaseDomainEvent
	PreviousGroup GroupKey `json:"previous_group"`
	Group         GroupKey `json:"group"`
	HeightLabel   string   `json:"height_label,omitempty"`
}

// NewUnitReclassifiedEvent creates a UnitReclassifiedEvent
func NewUnitReclassifiedEvent(u *Unit, previous GroupKey) *UnitReclassifiedEvent {
	return &UnitReclassifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitReclassified, AggregateTypeUnit, u.ID),
		PreviousGroup:   previous,
		Group:           u.GroupKey(),
		HeightLabel:     u.HeightLabel,
	}
}

// UnitRelocatedEvent is published when a unit moves between zones
type UnitRelocatedEvent struct {
	shared.BaseDomainEvent
	FromZoneID uuid.UUID `json:"from_zone_id"`
	ToZoneID   uuid.UUID `json:"to_zone_id"`
}

// NewUnitRelocatedEvent creates a UnitRelocatedEvent
func NewUnitRelocatedEvent(u *Unit, from uuid.UUID) *UnitRelocatedEvent {
	return &UnitRelocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitRelocated, AggregateTypeUnit, u.ID),
		FromZoneID:      from,
		ToZoneID:        u.ZoneID,
	}
}

// StockAllocatedEvent is published when a pooled allocation is accepted
type StockAllocatedEvent struct {
	shared.BaseDomainEvent
	Group    GroupKey `json:"group"`
	Quantity int      `json:"quantity"`
	DealRef  string   `json:"deal_ref"`
}

// NewStockAllocatedEvent creates a StockAllocatedEvent
func NewStockAllocatedEvent(h *Hold) *StockAllocatedEvent {
	return &StockAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAllocated, AggregateTypeHold, h.ID),
		Group:           h.Group,
		Quantity:        h.Quantity,
		DealRef:         h.DealRef,
	}
}

// HoldUnitBoundEvent is published when a unit fulfils part of a hold
type HoldUnitBoundEvent struct {
	shared.BaseDomainEvent
	UnitID    uuid.UUID `json:"unit_id"`
	Remaining int       `json:"remaining"`
}

// NewHoldUnitBoundEvent creates a HoldUnitBoundEvent
func NewHoldUnitBoundEvent(h *Hold, unitID uuid.UUID) *HoldUnitBoundEvent {
	return &HoldUnitBoundEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeHoldUnitBound, AggregateTypeHold, h.ID),
		UnitID:          unitID,
		Remaining:       h.Remaining(),
	}
}

// HoldClosedEvent is published when a hold is released, expires or is fulfilled
type HoldClosedEvent struct {
	shared.BaseDomainEvent
	Group   GroupKey   `json:"group"`
	Status  HoldStatus `json:"status"`
	Reason  string     `json:"reason"`
	Unbound int        `json:"unbound"`
	DealRef string     `json:"deal_ref"`
}

// NewHoldClosedEvent creates a HoldClosedEvent
func NewHoldClosedEvent(h *Hold) *HoldClosedEvent {
	return &HoldClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeHoldClosed, AggregateTypeHold, h.ID),
		Group:           h.Group,
		Status:          h.Status,
		Reason:          h.ReleaseReason,
		Unbound:         h.Remaining(),
		DealRef:         h.DealRef,
	}
}
