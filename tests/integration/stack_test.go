package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/infrastructure/event"
	"github.com/nursery/backend/internal/infrastructure/persistence"
	"github.com/nursery/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	crew    = appstock.Actor{ID: "crew-1"}
	manager = appstock.Actor{ID: "manager-1", Roles: []string{"inventory_manager"}}
)

// stack is the service layer wired over a test database
type stack struct {
	db          *TestDB
	events      *testutil.RecordingHandler
	lifecycle   *appstock.LifecycleService
	ledger      *appstock.LedgerService
	rollup      *appstock.RollupService
	zones       *appstock.ZoneService
	allocations *appstock.AllocationService
	expiration  *appstock.HoldExpirationService
	holdRepo    *persistence.GormHoldRepository
}

func newStack(t *testing.T, db *TestDB, locker appstock.GroupLocker) *stack {
	t.Helper()
	log := zap.NewNop()

	unitRepo := persistence.NewGormUnitRepository(db.DB)
	eventRepo := persistence.NewGormEventRepository(db.DB)
	zoneRepo := persistence.NewGormZoneRepository(db.DB)
	plantingRepo := persistence.NewGormPlantingRepository(db.DB)
	holdRepo := persistence.NewGormHoldRepository(db.DB)

	recorder := testutil.NewRecordingHandler()
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(recorder)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	lifecycle := appstock.NewLifecycleService(persistence.NewGormTransactionScope(db.DB), unitRepo, zoneRepo,
		appstock.NewRoleAuthorizer(appstock.DefaultCorrectionRoles), log)
	lifecycle.SetEventPublisher(bus)
	rollup := appstock.NewRollupService(unitRepo, plantingRepo, holdRepo, log)
	allocations := appstock.NewAllocationService(holdRepo, unitRepo, rollup, lifecycle, locker, 0, log)
	allocations.SetEventPublisher(bus)
	expiration := appstock.NewHoldExpirationService(holdRepo, log)
	expiration.SetEventPublisher(bus)

	return &stack{
		db:          db,
		events:      recorder,
		lifecycle:   lifecycle,
		ledger:      appstock.NewLedgerService(unitRepo, eventRepo, log),
		rollup:      rollup,
		zones:       appstock.NewZoneService(zoneRepo, plantingRepo, log),
		allocations: allocations,
		expiration:  expiration,
		holdRepo:    holdRepo,
	}
}

func (s *stack) zone(t *testing.T, code string) uuid.UUID {
	t.Helper()
	z, err := s.zones.Create(context.Background(), appstock.CreateZoneRequest{
		Code:     code,
		Name:     "Block " + code,
		PlotType: stock.PlotField,
	})
	require.NoError(t, err)
	return z.ID
}

func (s *stack) tag(t *testing.T, code string, species, zone uuid.UUID) uuid.UUID {
	t.Helper()
	u, err := s.lifecycle.Tag(context.Background(), appstock.TagUnitRequest{
		Code:      code,
		SpeciesID: species,
		SizeLabel: "#15",
		ZoneID:    zone,
		Actor:     crew,
	})
	require.NoError(t, err)
	return u.ID
}

func (s *stack) move(t *testing.T, unit uuid.UUID, to stock.Status) *appstock.TransitionResult {
	t.Helper()
	res, err := s.lifecycle.Transition(context.Background(), appstock.TransitionRequest{
		UnitID:   unit,
		ToStatus: to,
		Actor:    crew,
		Source:   "integration",
	})
	require.NoError(t, err)
	return res
}

// ready walks a freshly tagged unit to ready_for_sale
func (s *stack) ready(t *testing.T, unit uuid.UUID) {
	t.Helper()
	for _, to := range []stock.Status{stock.StatusDigOrdered, stock.StatusDug, stock.StatusReadyForSale} {
		s.move(t, unit, to)
	}
}
