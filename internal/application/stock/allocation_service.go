package stock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AllocateRequest asks for a pooled quantity of a group
type AllocateRequest struct {
	Group    stock.GroupKey
	Quantity int
	DealRef  string
	Actor    Actor
}

// AllocateUnitRequest reserves one specific ready unit for a deal
type AllocateUnitRequest struct {
	UnitID  uuid.UUID
	DealRef string
	Actor   Actor
	Source  string
}

// BindUnitRequest fulfils one unit of a pooled hold
type BindUnitRequest struct {
	HoldID uuid.UUID
	UnitID uuid.UUID
	Actor  Actor
	Source string
}

// ListHoldsRequest filters hold listings
type ListHoldsRequest struct {
	Filter stock.HoldFilter
	Page   int
	Size   int
}

// AllocationService places stock against deals. Pooled holds claim a
// quantity of a group under the group lock, so concurrent requests cannot
// claim the same stock twice. Unit allocations reserve a specific tree
// through the lifecycle service; holds that drift past the remaining
// available units surface as overallocated warnings in the rollup.
type AllocationService struct {
	holdRepo       stock.HoldRepository
	unitRepo       stock.UnitRepository
	rollup         *RollupService
	lifecycle      *LifecycleService
	locker         GroupLocker
	holdTTL        time.Duration
	eventPublisher shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewAllocationService creates a new AllocationService. A zero holdTTL keeps
// holds until they are released manually.
func NewAllocationService(
	holdRepo stock.HoldRepository,
	unitRepo stock.UnitRepository,
	rollup *RollupService,
	lifecycle *LifecycleService,
	locker GroupLocker,
	holdTTL time.Duration,
	logger *zap.Logger,
) *AllocationService {
	if locker == nil {
		locker = NewLocalGroupLocker(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		holdRepo:  holdRepo,
		unitRepo:  unitRepo,
		rollup:    rollup,
		lifecycle: lifecycle,
		locker:    locker,
		holdTTL:   holdTTL,
		metrics:   noopMetrics{},
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}

// SetEventPublisher sets the publisher for domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *AllocationService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Allocate creates a pooled hold if the group has enough free stock
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*HoldResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stock.Allocate", trace.WithAttributes(
		attribute.String("group", req.Group.String()),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	hold, err := stock.NewHold(req.Group, req.Quantity, req.DealRef, req.Actor.ID, s.holdTTL)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, req.Group)
	if err != nil {
		s.metrics.RecordAllocation(ctx, AllocationLockBusy, req.Quantity)
		return nil, err
	}
	defer s.unlock(ctx, release, req.Group)

	if err := s.ensureFree(ctx, req.Group, req.Quantity); err != nil {
		s.metrics.RecordAllocation(ctx, AllocationInsufficient, req.Quantity)
		return nil, err
	}
	if err := s.holdRepo.Create(ctx, hold); err != nil {
		return nil, err
	}

	s.publish(ctx, hold.GetDomainEvents())
	hold.ClearDomainEvents()
	s.metrics.RecordAllocation(ctx, AllocationAccepted, req.Quantity)
	s.logger.Info("Stock allocated",
		zap.String("hold_id", hold.ID.String()),
		zap.String("group", req.Group.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("deal_ref", hold.DealRef),
		zap.String("actor_id", req.Actor.ID),
	)
	resp := ToHoldResponse(hold)
	return &resp, nil
}

// AllocateUnit reserves one ready_for_sale unit for a deal
func (s *AllocationService) AllocateUnit(ctx context.Context, req AllocateUnitRequest) (*TransitionResult, error) {
	dealRef := strings.TrimSpace(req.DealRef)
	if dealRef == "" {
		return nil, stock.NewValidationError("allocation requires a deal reference")
	}
	unit, err := s.unitRepo.FindByID(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	if unit.Status != stock.StatusReadyForSale {
		return nil, stock.NewInvalidStateError(unit.ID, unit.Status, "only ready_for_sale units can be allocated")
	}

	result, err := s.lifecycle.Transition(ctx, TransitionRequest{
		UnitID:         unit.ID,
		ToStatus:       stock.StatusReserved,
		ExpectedStatus: stock.StatusReadyForSale,
		Actor:          req.Actor,
		Source:         sourceOr(req.Source, "allocation"),
		ContextType:    stock.ContextDeal,
		ContextID:      dealRef,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAllocation(ctx, AllocationAccepted, 1)
	return result, nil
}

// BindUnit reserves a unit against an active pooled hold. The unit must be
// ready_for_sale and belong to the hold's group. The hold update and the
// unit transition commit together under the group lock, so concurrent binds
// never reserve more units than the hold claims.
func (s *AllocationService) BindUnit(ctx context.Context, req BindUnitRequest) (*HoldResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stock.BindUnit", trace.WithAttributes(
		attribute.String("hold.id", req.HoldID.String()),
		attribute.String("unit.id", req.UnitID.String()),
	))
	defer span.End()
	started := s.now()

	hold, err := s.holdRepo.FindByID(ctx, req.HoldID)
	if err != nil {
		return nil, err
	}
	release, err := s.locker.Lock(ctx, hold.Group)
	if err != nil {
		s.metrics.RecordAllocation(ctx, AllocationLockBusy, 1)
		return nil, err
	}
	defer s.unlock(ctx, release, hold.Group)

	treq := TransitionRequest{
		UnitID:         req.UnitID,
		ToStatus:       stock.StatusReserved,
		ExpectedStatus: stock.StatusReadyForSale,
		Actor:          req.Actor,
		Source:         sourceOr(req.Source, "allocation_hold:"+hold.ID.String()),
		ContextType:    stock.ContextDeal,
		ContextID:      hold.DealRef,
	}
	var (
		result  *TransitionResult
		pending []shared.DomainEvent
	)
	err = s.lifecycle.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		// re-read under the lock: an earlier bind may have filled or closed it
		locked, err := repos.HoldRepo().FindByID(ctx, req.HoldID)
		if err != nil {
			return err
		}
		now := s.now()
		if !locked.Counts(now) {
			return shared.NewDomainError(shared.CodeInvalidState, "allocation is no longer active")
		}
		unit, err := repos.UnitRepo().FindByID(ctx, req.UnitID)
		if err != nil {
			return err
		}
		if unit.GroupKey() != locked.Group {
			return stock.NewValidationError("unit " + unit.Code + " is not in group " + locked.Group.String())
		}
		if unit.Status != stock.StatusReadyForSale {
			return stock.NewInvalidStateError(unit.ID, unit.Status, "only ready_for_sale units can be bound")
		}
		if err := locked.BindUnit(unit.ID, now); err != nil {
			return err
		}
		result, pending, err = s.lifecycle.transitionIn(ctx, repos, treq)
		if err != nil {
			return err
		}
		if err := repos.HoldRepo().SaveWithLock(ctx, locked); err != nil {
			return err
		}
		hold = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.committed(ctx, treq, result, pending, started)
	s.publish(ctx, hold.GetDomainEvents())
	hold.ClearDomainEvents()
	s.logger.Info("Unit bound to allocation",
		zap.String("hold_id", hold.ID.String()),
		zap.String("unit_id", req.UnitID.String()),
		zap.Int("bound", hold.Bound),
		zap.Int("quantity", hold.Quantity),
		zap.String("actor_id", req.Actor.ID),
	)
	resp := ToHoldResponse(hold)
	return &resp, nil
}

// Release cancels the unbound remainder of a hold
func (s *AllocationService) Release(ctx context.Context, holdID uuid.UUID, reason string, actor Actor) (*HoldResponse, error) {
	hold, err := s.holdRepo.FindByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if err := hold.Release(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.holdRepo.SaveWithLock(ctx, hold); err != nil {
		return nil, err
	}
	s.publish(ctx, hold.GetDomainEvents())
	hold.ClearDomainEvents()
	s.logger.Info("Allocation released",
		zap.String("hold_id", hold.ID.String()),
		zap.String("reason", hold.ReleaseReason),
		zap.String("actor_id", actor.ID),
	)
	resp := ToHoldResponse(hold)
	return &resp, nil
}

// Get returns one hold
func (s *AllocationService) Get(ctx context.Context, holdID uuid.UUID) (*HoldResponse, error) {
	hold, err := s.holdRepo.FindByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	resp := ToHoldResponse(hold)
	return &resp, nil
}

// ListHolds returns holds matching the filter
func (s *AllocationService) ListHolds(ctx context.Context, req ListHoldsRequest) (*shared.Paginated[HoldResponse], error) {
	page := shared.Page{Page: req.Page, PageSize: req.Size}.Normalize()
	holds, total, err := s.holdRepo.List(ctx, req.Filter, page)
	if err != nil {
		return nil, err
	}
	items := make([]HoldResponse, len(holds))
	for i := range holds {
		items[i] = ToHoldResponse(&holds[i])
	}
	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}

// ensureFree fails unless the group has at least quantity units that are
// available and not already held. Must be called under the group lock.
func (s *AllocationService) ensureFree(ctx context.Context, group stock.GroupKey, quantity int) error {
	m, err := s.rollup.GroupMeasures(ctx, group)
	if err != nil {
		return err
	}
	free := m.Free()
	if quantity > free {
		return &stock.InsufficientStockError{Group: group, Requested: quantity, Available: free}
	}
	return nil
}

func (s *AllocationService) unlock(ctx context.Context, release ReleaseFunc, group stock.GroupKey) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Failed to release group lock", zap.String("group", group.String()), zap.Error(err))
	}
}

func (s *AllocationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func sourceOr(source, fallback string) string {
	if strings.TrimSpace(source) != "" {
		return source
	}
	return fallback
}
