package stock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory repository set with the same optimistic locking
// rules as the database repositories.
type memStore struct {
	mu        sync.Mutex
	units     map[uuid.UUID]stock.Unit
	events    []stock.Event
	zones     map[uuid.UUID]stock.Zone
	plantings map[stock.GroupKey]stock.Planting
	holds     map[uuid.UUID]stock.Hold
}

func newMemStore() *memStore {
	return &memStore{
		units:     make(map[uuid.UUID]stock.Unit),
		zones:     make(map[uuid.UUID]stock.Zone),
		plantings: make(map[stock.GroupKey]stock.Planting),
		holds:     make(map[uuid.UUID]stock.Hold),
	}
}

type memUnits struct{ *memStore }
type memEvents struct{ *memStore }
type memZones struct{ *memStore }
type memPlantings struct{ *memStore }
type memHolds struct{ *memStore }

func (s *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(memUnits{s}, memEvents{s}, memHolds{s})
}

func (r memUnits) FindByID(_ context.Context, id uuid.UUID) (*stock.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[id]
	if !ok {
		return nil, stock.NewNotFoundError("unit", id)
	}
	u.ClearDomainEvents()
	return &u, nil
}

func (r memUnits) FindByCode(_ context.Context, code string) (*stock.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.Code == code {
			u.ClearDomainEvents()
			return &u, nil
		}
	}
	return nil, stock.NewNotFoundError("unit", code)
}

func (r memUnits) FindReadyInGroup(_ context.Context, group stock.GroupKey, limit int) ([]stock.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Unit
	for _, u := range r.units {
		if u.GroupKey() == group && u.Status == stock.StatusReadyForSale && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r memUnits) List(_ context.Context, filter stock.UnitFilter, page shared.Page) ([]stock.Unit, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Unit
	for _, u := range r.units {
		if filter.ZoneID != nil && u.ZoneID != *filter.ZoneID {
			continue
		}
		if filter.Search != "" && !strings.Contains(u.Code, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

func (r memUnits) Snapshot(_ context.Context, filter stock.RollupFilter) ([]stock.UnitSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.UnitSnapshot
	for _, u := range r.units {
		if filter.ZoneID != nil && u.ZoneID != *filter.ZoneID {
			continue
		}
		if filter.SpeciesID != nil && u.SpeciesID != *filter.SpeciesID {
			continue
		}
		out = append(out, stock.UnitSnapshot{Group: u.GroupKey(), Status: u.Status})
	}
	return out, nil
}

func (r memUnits) Create(_ context.Context, unit *stock.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[unit.ID] = *unit
	return nil
}

func (r memUnits) SaveWithLock(_ context.Context, unit *stock.Unit, expected stock.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.units[unit.ID]
	if !ok {
		return stock.NewNotFoundError("unit", unit.ID)
	}
	if stored.Version != unit.Version-1 || stored.Status != expected {
		return &stock.ConflictError{UnitID: unit.ID, Expected: expected, Actual: stored.Status}
	}
	r.units[unit.ID] = *unit
	return nil
}

func (r memUnits) ExistsByCode(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r memEvents) Append(_ context.Context, event *stock.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r memEvents) all(unitID uuid.UUID) []stock.Event {
	var out []stock.Event
	for _, e := range r.events {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r memEvents) Timeline(_ context.Context, unitID uuid.UUID, limit, offset int) ([]stock.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.all(unitID)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memEvents) ListAll(_ context.Context, unitID uuid.UUID) ([]stock.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.all(unitID), nil
}

func (r memEvents) Count(_ context.Context, unitID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.all(unitID))), nil
}

func (r memZones) FindByID(_ context.Context, id uuid.UUID) (*stock.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[id]
	if !ok {
		return nil, stock.NewNotFoundError("zone", id)
	}
	return &z, nil
}

func (r memZones) ExistsByCode(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, z := range r.zones {
		if z.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r memZones) List(_ context.Context, plotType stock.PlotType) ([]stock.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Zone
	for _, z := range r.zones {
		if plotType == "" || z.PlotType == plotType {
			out = append(out, z)
		}
	}
	return out, nil
}

func (r memZones) Create(_ context.Context, zone *stock.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[zone.ID] = *zone
	return nil
}

func (r memPlantings) Upsert(_ context.Context, p *stock.Planting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plantings[p.Group] = *p
	return nil
}

func (r memPlantings) Find(_ context.Context, filter stock.RollupFilter) ([]stock.Planting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Planting
	for k, p := range r.plantings {
		if filter.ZoneID != nil && k.ZoneID != *filter.ZoneID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r memHolds) FindByID(_ context.Context, id uuid.UUID) (*stock.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, stock.NewNotFoundError("allocation", id)
	}
	h.ClearDomainEvents()
	return &h, nil
}

func (r memHolds) Create(_ context.Context, hold *stock.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holds[hold.ID] = *hold
	return nil
}

func (r memHolds) SaveWithLock(_ context.Context, hold *stock.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.holds[hold.ID]
	if !ok {
		return stock.NewNotFoundError("allocation", hold.ID)
	}
	if stored.Version != hold.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.holds[hold.ID] = *hold
	return nil
}

func (r memHolds) FindActive(_ context.Context, filter stock.RollupFilter) ([]stock.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Hold
	for _, h := range r.holds {
		if h.Status != stock.HoldActive {
			continue
		}
		if filter.ZoneID != nil && h.Group.ZoneID != *filter.ZoneID {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (r memHolds) FindActiveByGroup(ctx context.Context, group stock.GroupKey) ([]stock.Hold, error) {
	all, _ := r.FindActive(ctx, stock.RollupFilter{})
	var out []stock.Hold
	for _, h := range all {
		if h.Group == group {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memHolds) FindExpired(_ context.Context, now time.Time, limit int) ([]stock.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Hold
	for _, h := range r.holds {
		if h.Status == stock.HoldActive && h.IsExpired(now) && len(out) < limit {
			h.ClearDomainEvents()
			out = append(out, h)
		}
	}
	return out, nil
}

func (r memHolds) List(_ context.Context, filter stock.HoldFilter, _ shared.Page) ([]stock.Hold, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Hold
	for _, h := range r.holds {
		if filter.DealRef != "" && h.DealRef != filter.DealRef {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		out = append(out, h)
	}
	return out, int64(len(out)), nil
}

// MockEventBus records published domain events
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockUnitRepository is a testify mock of stock.UnitRepository
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Unit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindByCode(ctx context.Context, code string) (*stock.Unit, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindReadyInGroup(ctx context.Context, group stock.GroupKey, limit int) ([]stock.Unit, error) {
	args := m.Called(ctx, group, limit)
	return args.Get(0).([]stock.Unit), args.Error(1)
}

func (m *MockUnitRepository) List(ctx context.Context, filter stock.UnitFilter, page shared.Page) ([]stock.Unit, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]stock.Unit), args.Get(1).(int64), args.Error(2)
}

func (m *MockUnitRepository) Snapshot(ctx context.Context, filter stock.RollupFilter) ([]stock.UnitSnapshot, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]stock.UnitSnapshot), args.Error(1)
}

func (m *MockUnitRepository) Create(ctx context.Context, unit *stock.Unit) error {
	return m.Called(ctx, unit).Error(0)
}

func (m *MockUnitRepository) SaveWithLock(ctx context.Context, unit *stock.Unit, expected stock.Status) error {
	return m.Called(ctx, unit, expected).Error(0)
}

func (m *MockUnitRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

// MockEventRepository is a testify mock of stock.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, event *stock.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) Timeline(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]stock.Event, error) {
	args := m.Called(ctx, unitID, limit, offset)
	return args.Get(0).([]stock.Event), args.Error(1)
}

func (m *MockEventRepository) ListAll(ctx context.Context, unitID uuid.UUID) ([]stock.Event, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).([]stock.Event), args.Error(1)
}

func (m *MockEventRepository) Count(ctx context.Context, unitID uuid.UUID) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

// fixture wires services over one memStore
type fixture struct {
	store      *memStore
	lifecycle  *LifecycleService
	ledger     *LedgerService
	rollup     *RollupService
	allocation *AllocationService
	expiration *HoldExpirationService
	zones      *ZoneService
	zone       stock.Zone
	now        time.Time
}

var (
	manager  = Actor{ID: "mgr-1", Roles: []string{"inventory_manager"}}
	operator = Actor{ID: "op-1", Roles: []string{"field_crew"}}
)

func newFixture(holdTTL time.Duration) *fixture {
	store := newMemStore()
	zone, _ := stock.NewZone("B-12", "Block 12", stock.PlotField)
	store.zones[zone.ID] = *zone

	f := &fixture{store: store, zone: *zone, now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.lifecycle = NewLifecycleService(store.scope(), memUnits{store}, memZones{store}, NewRoleAuthorizer(nil), nil)
	f.lifecycle.now = clock
	f.ledger = NewLedgerService(memUnits{store}, memEvents{store}, nil)
	f.rollup = NewRollupService(memUnits{store}, memPlantings{store}, memHolds{store}, nil)
	f.rollup.now = clock
	f.allocation = NewAllocationService(memHolds{store}, memUnits{store}, f.rollup, f.lifecycle, NewLocalGroupLocker(time.Second), holdTTL, nil)
	f.allocation.now = clock
	f.expiration = NewHoldExpirationService(memHolds{store}, nil)
	f.expiration.now = clock
	f.zones = NewZoneService(memZones{store}, memPlantings{store}, nil)
	return f
}

// seedUnit stores a unit directly in the given status
func (f *fixture) seedUnit(code string, species uuid.UUID, status stock.Status) *stock.Unit {
	u, err := stock.NewUnit(stock.TagSpec{Code: code, SpeciesID: species, SizeLabel: "2in", ZoneID: f.zone.ID})
	if err != nil {
		panic(err)
	}
	u.Status = status
	u.ClearDomainEvents()
	f.store.units[u.ID] = *u
	return u
}
