package stock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReady(f *fixture, species uuid.UUID, n int) []*stock.Unit {
	out := make([]*stock.Unit, n)
	for i := range out {
		out[i] = f.seedUnit(uuid.NewString()[:8], species, stock.StatusReadyForSale)
	}
	return out
}

func TestAllocationService_PooledHoldRespectsFreeQuantity(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	species := uuid.New()
	units := seedReady(f, species, 3)
	group := units[0].GroupKey()

	hold, err := f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 2, DealRef: "D-1", Actor: operator})
	require.NoError(t, err)
	assert.Equal(t, stock.HoldActive, hold.Status)
	assert.Equal(t, 2, hold.Remaining)
	assert.Nil(t, hold.ExpiresAt)

	_, err = f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 2, DealRef: "D-2", Actor: operator})
	var serr *stock.InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Available)
	assert.Equal(t, 1, serr.Deficit())
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	res, err := f.allocation.AllocateUnit(ctx, AllocateUnitRequest{UnitID: units[2].ID, DealRef: "D-3", Actor: operator})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusReserved, res.Unit.Status)
	require.NotNil(t, res.Unit.DealID)
	assert.Equal(t, "D-3", *res.Unit.DealID)

	m, err := f.rollup.GroupMeasures(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Available)
	assert.Equal(t, 1, m.Reserved)
	assert.Equal(t, 2, m.Held)
	assert.Equal(t, 0, m.Free())
}

func TestAllocationService_AllocateUnitIgnoresPooledHolds(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 2)
	group := units[0].GroupKey()

	_, err := f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 2, DealRef: "D-1", Actor: operator})
	require.NoError(t, err)

	// a tagged tree is physically ready, so the direct allocation goes through
	res, err := f.allocation.AllocateUnit(ctx, AllocateUnitRequest{UnitID: units[1].ID, DealRef: "D-2", Actor: operator})
	require.NoError(t, err)
	assert.Equal(t, stock.StatusReserved, res.Unit.Status)

	m, err := f.rollup.GroupMeasures(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Available)
	assert.Equal(t, 1, m.Reserved)
	assert.Equal(t, 2, m.Held)
	assert.Equal(t, 0, m.Free())

	rollup, err := f.rollup.Compute(ctx, stock.RollupFilter{})
	require.NoError(t, err)
	var kinds []stock.WarningKind
	for _, w := range rollup.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, stock.WarnOverallocated)
}

func TestAllocationService_AllocateUnitRequiresReadyForSale(t *testing.T) {
	f := newFixture(0)
	unit := f.seedUnit("T-1", uuid.New(), stock.StatusDug)

	_, err := f.allocation.AllocateUnit(context.Background(), AllocateUnitRequest{UnitID: unit.ID, DealRef: "D-1", Actor: operator})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.allocation.AllocateUnit(context.Background(), AllocateUnitRequest{UnitID: unit.ID, Actor: operator})
	var verr *stock.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAllocationService_BindAndRelease(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 3)
	group := units[0].GroupKey()

	hold, err := f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 2, DealRef: "D-9", Actor: operator})
	require.NoError(t, err)

	bound, err := f.allocation.BindUnit(ctx, BindUnitRequest{HoldID: hold.ID, UnitID: units[0].ID, Actor: operator})
	require.NoError(t, err)
	assert.Equal(t, 1, bound.Bound)
	assert.Equal(t, stock.HoldActive, bound.Status)

	got, err := f.lifecycle.Get(ctx, units[0].ID)
	require.NoError(t, err)
	assert.Equal(t, stock.StatusReserved, got.Status)
	require.NotNil(t, got.DealID)
	assert.Equal(t, "D-9", *got.DealID)

	// binding keeps free unchanged: one fewer available, one fewer held
	m, err := f.rollup.GroupMeasures(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Free())

	released, err := f.allocation.Release(ctx, hold.ID, "deal lost", operator)
	require.NoError(t, err)
	assert.Equal(t, stock.HoldReleased, released.Status)
	assert.Equal(t, "deal lost", released.ReleaseReason)

	_, err = f.allocation.Release(ctx, hold.ID, "again", operator)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.allocation.BindUnit(ctx, BindUnitRequest{HoldID: hold.ID, UnitID: units[1].ID, Actor: operator})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	m, err = f.rollup.GroupMeasures(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Free())
}

func TestAllocationService_ConcurrentBindsFulfilOnce(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 8)

	hold, err := f.allocation.Allocate(ctx, AllocateRequest{Group: units[0].GroupKey(), Quantity: 1, DealRef: "D-7", Actor: operator})
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		bound atomic.Int32
	)
	start := make(chan struct{})
	for _, u := range units {
		wg.Add(1)
		go func(unitID uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.allocation.BindUnit(ctx, BindUnitRequest{HoldID: hold.ID, UnitID: unitID, Actor: operator})
			if err == nil {
				bound.Add(1)
				return
			}
			assert.ErrorIs(t, err, shared.ErrInvalidState)
		}(u.ID)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), bound.Load())

	reserved := 0
	for _, u := range units {
		got, err := f.lifecycle.Get(ctx, u.ID)
		require.NoError(t, err)
		if got.Status == stock.StatusReserved {
			reserved++
			require.NotNil(t, got.DealID)
			assert.Equal(t, "D-7", *got.DealID)
		} else {
			assert.Equal(t, stock.StatusReadyForSale, got.Status)
		}
	}
	assert.Equal(t, 1, reserved)

	after, err := f.allocation.Get(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.HoldFulfilled, after.Status)
	assert.Equal(t, 1, after.Bound)
	assert.Equal(t, 0, after.Remaining)
}

func TestAllocationService_BindRejectsUnitOutsideGroup(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 1)
	stranger := f.seedUnit("X-1", uuid.New(), stock.StatusReadyForSale)

	hold, err := f.allocation.Allocate(ctx, AllocateRequest{Group: units[0].GroupKey(), Quantity: 1, DealRef: "D-1", Actor: operator})
	require.NoError(t, err)

	_, err = f.allocation.BindUnit(ctx, BindUnitRequest{HoldID: hold.ID, UnitID: stranger.ID, Actor: operator})
	var verr *stock.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAllocationService_ConcurrentAllocationsNeverOverbook(t *testing.T) {
	f := newFixture(0)
	units := seedReady(f, uuid.New(), 5)
	group := units[0].GroupKey()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.allocation.Allocate(context.Background(), AllocateRequest{
				Group: group, Quantity: 1, DealRef: "D-race", Actor: operator,
			}); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), accepted.Load())
	m, err := f.rollup.GroupMeasures(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Held)
	assert.Equal(t, 0, m.Free())
}

func TestAllocationService_ExpiredHoldsStopCountingAndAreSwept(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 2)
	group := units[0].GroupKey()
	f.now = time.Now()

	hold, err := f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 2, DealRef: "D-1", Actor: operator})
	require.NoError(t, err)
	require.NotNil(t, hold.ExpiresAt)

	f.now = hold.ExpiresAt.Add(time.Minute)

	// lazy: the expired hold no longer claims stock before any sweep
	m, err := f.rollup.GroupMeasures(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Held)
	assert.Equal(t, 2, m.Free())

	stats, err := f.expiration.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalExpired)
	assert.Equal(t, 1, stats.SuccessReleased)
	assert.Equal(t, 0, stats.FailedReleases)

	got, err := f.allocation.Get(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.HoldExpired, got.Status)

	stats, err = f.expiration.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalExpired)
}

func TestAllocationService_ListHolds(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	units := seedReady(f, uuid.New(), 4)
	group := units[0].GroupKey()

	for _, ref := range []string{"D-1", "D-1", "D-2"} {
		_, err := f.allocation.Allocate(ctx, AllocateRequest{Group: group, Quantity: 1, DealRef: ref, Actor: operator})
		require.NoError(t, err)
	}

	page, err := f.allocation.ListHolds(ctx, ListHoldsRequest{Filter: stock.HoldFilter{DealRef: "D-1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestLocalGroupLocker_TimesOutWhileHeld(t *testing.T) {
	locker := NewLocalGroupLocker(20 * time.Millisecond)
	group := stock.GroupKey{SpeciesID: uuid.New(), SizeLabel: "2in", ZoneID: uuid.New()}

	release, err := locker.Lock(context.Background(), group)
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), group)
	assert.ErrorIs(t, err, ErrGroupLocked)

	other := group
	other.Grade = "B"
	releaseOther, err := locker.Lock(context.Background(), other)
	require.NoError(t, err)
	require.NoError(t, releaseOther(context.Background()))

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()))
	release, err = locker.Lock(context.Background(), group)
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}
