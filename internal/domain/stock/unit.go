package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
)

// Unit is one physically tagged tree. It is the aggregate root of the
// lifecycle: Status is a cache of the latest ledger event's to_status.
type Unit struct {
	shared.BaseAggregateRoot
	Code        string
	Status      Status
	SpeciesID   uuid.UUID
	SizeLabel   string
	Grade       string
	HeightLabel string
	ZoneID      uuid.UUID
	DealID      *string
	DigOrderID  *string
	TaggedBy    string
}

// ContextType names the workflow a transition belongs to
type ContextType string

const (
	ContextNone     ContextType = ""
	ContextDeal     ContextType = "deal"
	ContextDigOrder ContextType = "dig_order"
	ContextShipment ContextType = "shipment"
	ContextHold     ContextType = "allocation_hold"
)

// TagSpec describes a unit being tagged in a zone
type TagSpec struct {
	Code        string
	SpeciesID   uuid.UUID
	SizeLabel   string
	Grade       string
	HeightLabel string
	ZoneID      uuid.UUID
	TaggedBy    string
}

const maxCodeLength = 64

// NewUnit tags a new unit. It starts in_zone and has no ledger history.
func NewUnit(spec TagSpec) (*Unit, error) {
	code := strings.TrimSpace(spec.Code)
	if code == "" {
		return nil, NewValidationError("tag code cannot be empty")
	}
	if len(code) > maxCodeLength {
		return nil, NewValidationError("tag code cannot exceed 64 characters")
	}
	if spec.ZoneID == uuid.Nil {
		return nil, NewValidationError("zone is required")
	}
	if spec.SpeciesID == uuid.Nil {
		return nil, NewValidationError("species is required")
	}
	if strings.TrimSpace(spec.SizeLabel) == "" {
		return nil, NewValidationError("size label is required")
	}

	u := &Unit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Status:            InitialStatus,
		SpeciesID:         spec.SpeciesID,
		SizeLabel:         strings.TrimSpace(spec.SizeLabel),
		Grade:             strings.TrimSpace(spec.Grade),
		HeightLabel:       strings.TrimSpace(spec.HeightLabel),
		ZoneID:            spec.ZoneID,
		TaggedBy:          spec.TaggedBy,
	}
	if err := u.GroupKey().Validate(); err != nil {
		return nil, err
	}
	u.AddDomainEvent(NewUnitTaggedEvent(u))
	return u, nil
}

// GroupKey returns the stock group the unit currently belongs to
func (u *Unit) GroupKey() GroupKey {
	return GroupKey{
		SpeciesID: u.SpeciesID,
		SizeLabel: u.SizeLabel,
		ZoneID:    u.ZoneID,
		Grade:     u.Grade,
	}
}

// StatusChange carries everything the ledger records about a transition
type StatusChange struct {
	To           Status
	Actor        string
	Source       string
	ContextType  ContextType
	ContextID    string
	Notes        string
	IsCorrection bool
	At           time.Time
}

// ApplyStatus moves the unit to change.To, maintains the linked context and
// returns the ledger event for the change. Legality is decided by Classify
// and the lifecycle service before this is called.
func (u *Unit) ApplyStatus(change StatusChange) (*Event, error) {
	if !change.To.IsValid() {
		return nil, NewValidationError("unknown lifecycle status " + string(change.To))
	}
	if change.To == u.Status {
		return nil, NewValidationError("status is unchanged")
	}
	if u.Status.IsTerminal() {
		return nil, NewInvalidStateError(u.ID, u.Status, "terminal status cannot change to "+string(change.To))
	}
	if change.ContextID != "" && change.ContextType == ContextNone {
		return nil, NewValidationError("context id requires a context type")
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	from := u.Status
	u.Status = change.To
	u.applyLinks(change)
	u.UpdatedAt = at
	u.IncrementVersion()

	evt := NewEvent(u.ID, u.Version, from, change.To, at).
		WithActor(change.Actor).
		WithSource(change.Source).
		WithContext(change.ContextType, change.ContextID).
		WithNotes(change.Notes)
	if change.IsCorrection {
		evt.MarkCorrection()
	}

	u.AddDomainEvent(NewUnitStatusChangedEvent(u, evt))
	return evt, nil
}

func (u *Unit) applyLinks(change StatusChange) {
	switch {
	case change.To == StatusDigOrdered && change.ContextType == ContextDigOrder && change.ContextID != "":
		id := change.ContextID
		u.DigOrderID = &id
	case change.To.IsPreCommitment() || change.To.IsSideBranch():
		u.DigOrderID = nil
	}

	switch {
	case change.To == StatusReserved && change.ContextType == ContextDeal && change.ContextID != "":
		id := change.ContextID
		u.DealID = &id
	case !change.To.IsDealBound():
		u.DealID = nil
	}
}

// ClassificationPatch holds optional classification corrections.
// Nil fields are left untouched.
type ClassificationPatch struct {
	SpeciesID   *uuid.UUID
	SizeLabel   *string
	Grade       *string
	HeightLabel *string
}

// IsEmpty reports whether the patch changes nothing
func (p *ClassificationPatch) IsEmpty() bool {
	return p == nil || (p.SpeciesID == nil && p.SizeLabel == nil && p.Grade == nil && p.HeightLabel == nil)
}

// PatchClassification applies p without bumping the version. Used when the
// patch rides along with a status change in the same write.
func (u *Unit) PatchClassification(p *ClassificationPatch) (bool, error) {
	if p.IsEmpty() {
		return false, nil
	}
	before := u.GroupKey()
	beforeHeight := u.HeightLabel

	next := *u
	if p.SpeciesID != nil {
		next.SpeciesID = *p.SpeciesID
	}
	if p.SizeLabel != nil {
		next.SizeLabel = strings.TrimSpace(*p.SizeLabel)
	}
	if p.Grade != nil {
		next.Grade = strings.TrimSpace(*p.Grade)
	}
	if p.HeightLabel != nil {
		next.HeightLabel = strings.TrimSpace(*p.HeightLabel)
	}
	if err := next.GroupKey().Validate(); err != nil {
		return false, err
	}
	if next.GroupKey() == before && next.HeightLabel == beforeHeight {
		return false, nil
	}

	u.SpeciesID = next.SpeciesID
	u.SizeLabel = next.SizeLabel
	u.Grade = next.Grade
	u.HeightLabel = next.HeightLabel
	u.AddDomainEvent(NewUnitReclassifiedEvent(u, before))
	return true, nil
}

// Reclassify corrects classification attributes as its own write.
// It never produces a ledger event.
func (u *Unit) Reclassify(p *ClassificationPatch) (bool, error) {
	changed, err := u.PatchClassification(p)
	if err != nil || !changed {
		return changed, err
	}
	u.Touch()
	u.IncrementVersion()
	return true, nil
}

// Relocate moves the unit to another zone. Status is unaffected.
func (u *Unit) Relocate(zoneID uuid.UUID) (bool, error) {
	if zoneID == uuid.Nil {
		return false, NewValidationError("zone is required")
	}
	if zoneID == u.ZoneID {
		return false, nil
	}
	from := u.ZoneID
	u.ZoneID = zoneID
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUnitRelocatedEvent(u, from))
	return true, nil
}
