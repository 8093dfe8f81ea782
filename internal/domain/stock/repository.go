package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
)

// RollupFilter narrows a rollup or snapshot query. Zero values match all.
type RollupFilter struct {
	ZoneID    *uuid.UUID
	SpeciesID *uuid.UUID
	SizeLabel string
	PlotType  PlotType
}

// UnitFilter narrows unit listings
type UnitFilter struct {
	RollupFilter
	Grade    *string
	Statuses []Status
	Search   string
}

// UnitRepository persists units. Units are never deleted.
type UnitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindByCode(ctx context.Context, code string) (*Unit, error)
	// FindReadyInGroup returns up to limit units of the group in ready_for_sale
	FindReadyInGroup(ctx context.Context, group GroupKey, limit int) ([]Unit, error)
	List(ctx context.Context, filter UnitFilter, page shared.Page) ([]Unit, int64, error)
	// Snapshot returns the status projection used by the rollup engine
	Snapshot(ctx context.Context, filter RollupFilter) ([]UnitSnapshot, error)
	Create(ctx context.Context, unit *Unit) error
	// SaveWithLock writes the unit only if the stored row still has the
	// previous version and the expected status. A mismatch is a ConflictError.
	SaveWithLock(ctx context.Context, unit *Unit, expected Status) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// EventRepository is the append-only ledger. It has no update or delete.
type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	// Timeline returns events newest first
	Timeline(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]Event, error)
	// ListAll returns every event of the unit oldest first
	ListAll(ctx context.Context, unitID uuid.UUID) ([]Event, error)
	Count(ctx context.Context, unitID uuid.UUID) (int64, error)
}

// ZoneRepository persists zones
type ZoneRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Zone, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, plotType PlotType) ([]Zone, error)
	Create(ctx context.Context, zone *Zone) error
}

// PlantingRepository stores planned quantities per group
type PlantingRepository interface {
	Upsert(ctx context.Context, planting *Planting) error
	Find(ctx context.Context, filter RollupFilter) ([]Planting, error)
}

// HoldFilter narrows hold listings
type HoldFilter struct {
	Group   *GroupKey
	DealRef string
	Status  HoldStatus
}

// HoldRepository persists pooled allocations
type HoldRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	Create(ctx context.Context, hold *Hold) error
	SaveWithLock(ctx context.Context, hold *Hold) error
	// FindActive returns active holds matching the filter, expired or not
	FindActive(ctx context.Context, filter RollupFilter) ([]Hold, error)
	FindActiveByGroup(ctx context.Context, group GroupKey) ([]Hold, error)
	// FindExpired returns active holds whose deadline is at or before now
	FindExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error)
	List(ctx context.Context, filter HoldFilter, page shared.Page) ([]Hold, int64, error)
}
