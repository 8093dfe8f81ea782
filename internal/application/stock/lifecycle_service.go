package stock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/nursery/backend/internal/application/stock"

// LifecycleService owns unit status changes. Every accepted change updates
// the unit and appends exactly one ledger event in a single transaction.
type LifecycleService struct {
	txScope        TransactionScope
	unitRepo       stock.UnitRepository
	zoneRepo       stock.ZoneRepository
	authorizer     Authorizer
	eventPublisher shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	txScope TransactionScope,
	unitRepo stock.UnitRepository,
	zoneRepo stock.ZoneRepository,
	authorizer Authorizer,
	logger *zap.Logger,
) *LifecycleService {
	if authorizer == nil {
		authorizer = NewRoleAuthorizer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		txScope:    txScope,
		unitRepo:   unitRepo,
		zoneRepo:   zoneRepo,
		authorizer: authorizer,
		metrics:    noopMetrics{},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
}

// SetEventPublisher sets the publisher for domain events
func (s *LifecycleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *LifecycleService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Transition requests a status change for one unit.
//
// The request is checked in this order: expected status, classification,
// terminal status, correction notes, correction authority. A no-op writes
// nothing to the ledger but still applies a classification patch if one is
// given.
func (s *LifecycleService) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "stock.Transition", trace.WithAttributes(
		attribute.String("unit.id", req.UnitID.String()),
		attribute.String("status.requested", string(req.ToStatus)),
		attribute.Bool("force", req.Force),
	))
	defer span.End()
	started := s.now()

	if err := validateTransitionRequest(req); err != nil {
		return nil, s.reject(ctx, span, req, err)
	}

	var (
		result  *TransitionResult
		pending []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, pending, err = s.transitionIn(ctx, repos, req)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, req, err)
	}

	s.committed(ctx, req, result, pending, started)
	return result, nil
}

// transitionIn applies a validated request through repositories bound to the
// caller's transaction. The returned domain events must be published only
// after that transaction commits.
func (s *LifecycleService) transitionIn(ctx context.Context, repos TransactionalRepositories, req TransitionRequest) (*TransitionResult, []shared.DomainEvent, error) {
	unit, err := repos.UnitRepo().FindByID(ctx, req.UnitID)
	if err != nil {
		return nil, nil, err
	}
	current := unit.Status

	if req.ExpectedStatus != "" && req.ExpectedStatus != current {
		return nil, nil, &stock.ConflictError{
			UnitID:    unit.ID,
			Expected:  req.ExpectedStatus,
			Actual:    current,
			Requested: req.ToStatus,
		}
	}

	class := stock.Classify(current, req.ToStatus)
	if class == stock.ClassNoOp {
		changed, err := unit.Reclassify(req.Classification)
		if err != nil {
			return nil, nil, err
		}
		if changed {
			if err := s.save(ctx, repos.UnitRepo(), unit, current, req.ToStatus); err != nil {
				return nil, nil, err
			}
		}
		pending := unit.GetDomainEvents()
		unit.ClearDomainEvents()
		return &TransitionResult{Unit: ToUnitResponse(unit), Classification: class}, pending, nil
	}

	// dead and cancelled units stay on record but never move again
	if current.IsTerminal() {
		return nil, nil, stock.NewInvalidStateError(unit.ID, current,
			"terminal status cannot change to "+string(req.ToStatus))
	}

	if class == stock.ClassCorrection {
		if strings.TrimSpace(req.Notes) == "" {
			return nil, nil, &stock.ValidationError{
				UnitID:    unit.ID,
				Current:   current,
				Requested: req.ToStatus,
				Reason:    stock.MsgCorrectionRequiresNotes,
			}
		}
		if !req.Force || !s.authorizer.CanForceCorrection(req.Actor) {
			return nil, nil, &stock.PermissionError{
				UnitID:    unit.ID,
				Current:   current,
				Requested: req.ToStatus,
				ActorID:   req.Actor.ID,
				Forced:    req.Force,
			}
		}
	}

	if _, err := unit.PatchClassification(req.Classification); err != nil {
		return nil, nil, err
	}
	evt, err := unit.ApplyStatus(stock.StatusChange{
		To:           req.ToStatus,
		Actor:        req.Actor.ID,
		Source:       req.Source,
		ContextType:  req.ContextType,
		ContextID:    req.ContextID,
		Notes:        req.Notes,
		IsCorrection: class == stock.ClassCorrection,
		At:           s.now(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.save(ctx, repos.UnitRepo(), unit, current, req.ToStatus); err != nil {
		return nil, nil, err
	}
	if err := repos.EventRepo().Append(ctx, evt); err != nil {
		return nil, nil, err
	}

	pending := unit.GetDomainEvents()
	unit.ClearDomainEvents()
	evtResp := ToEventResponse(evt)
	return &TransitionResult{Unit: ToUnitResponse(unit), Classification: class, Event: &evtResp}, pending, nil
}

// committed publishes, records and logs a transition whose transaction has
// committed.
func (s *LifecycleService) committed(ctx context.Context, req TransitionRequest, result *TransitionResult, pending []shared.DomainEvent, started time.Time) {
	s.publish(ctx, pending)
	s.metrics.RecordTransition(ctx, result.Classification, req.ToStatus, s.now().Sub(started))
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("transition.class", string(result.Classification)))

	if result.Event == nil {
		return
	}
	fields := []zap.Field{
		zap.String("unit_id", req.UnitID.String()),
		zap.String("from", string(result.Event.FromStatus)),
		zap.String("to", string(result.Event.ToStatus)),
		zap.String("class", string(result.Classification)),
		zap.String("actor_id", req.Actor.ID),
		zap.Int("sequence", result.Event.Sequence),
	}
	if result.Event.IsCorrection {
		s.logger.Warn("Lifecycle correction applied", fields...)
	} else {
		s.logger.Info("Lifecycle transition applied", fields...)
	}
}

// save writes the unit under optimistic locking. On a lost race the stored
// status is re-read so the conflict names what the caller actually lost to.
func (s *LifecycleService) save(ctx context.Context, repo stock.UnitRepository, unit *stock.Unit, expected, requested stock.Status) error {
	err := repo.SaveWithLock(ctx, unit, expected)
	if err == nil {
		return nil
	}
	var conflict *stock.ConflictError
	if !errors.As(err, &conflict) {
		return err
	}
	conflict.Requested = requested
	if conflict.Actual == "" {
		if latest, ferr := repo.FindByID(ctx, unit.ID); ferr == nil {
			conflict.Actual = latest.Status
		}
	}
	return conflict
}

func (s *LifecycleService) reject(ctx context.Context, span trace.Span, req TransitionRequest, err error) error {
	code := ErrorCode(err)
	s.metrics.RecordRejected(ctx, code)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)

	fields := []zap.Field{
		zap.String("unit_id", req.UnitID.String()),
		zap.String("requested", string(req.ToStatus)),
		zap.String("actor_id", req.Actor.ID),
		zap.String("code", code),
		zap.Error(err),
	}
	switch code {
	case shared.CodePermissionDenied, shared.CodeConflict:
		s.logger.Warn("Lifecycle transition rejected", fields...)
	case shared.CodeValidation, shared.CodeInvalidInput, shared.CodeNotFound, shared.CodeInvalidState:
		s.logger.Info("Lifecycle transition rejected", fields...)
	default:
		s.logger.Error("Lifecycle transition failed", fields...)
	}
	return err
}

func validateTransitionRequest(req TransitionRequest) error {
	if req.UnitID == uuid.Nil {
		return stock.NewValidationError("unit id is required")
	}
	if !req.ToStatus.IsValid() {
		return stock.NewValidationError("unknown lifecycle status " + string(req.ToStatus))
	}
	if req.ExpectedStatus != "" && !req.ExpectedStatus.IsValid() {
		return stock.NewValidationError("unknown expected status " + string(req.ExpectedStatus))
	}
	if req.ContextID != "" && req.ContextType == stock.ContextNone {
		return stock.NewValidationError("context id requires a context type")
	}
	return nil
}

// Tag registers a newly tagged unit in a zone
func (s *LifecycleService) Tag(ctx context.Context, req TagUnitRequest) (*UnitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "stock.Tag")
	defer span.End()

	if _, err := s.zoneRepo.FindByID(ctx, req.ZoneID); err != nil {
		return nil, err
	}
	unit, err := stock.NewUnit(stock.TagSpec{
		Code:        req.Code,
		SpeciesID:   req.SpeciesID,
		SizeLabel:   req.SizeLabel,
		Grade:       req.Grade,
		HeightLabel: req.HeightLabel,
		ZoneID:      req.ZoneID,
		TaggedBy:    req.Actor.ID,
	})
	if err != nil {
		return nil, err
	}
	exists, err := s.unitRepo.ExistsByCode(ctx, unit.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "tag code "+unit.Code+" is already in use")
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, err
	}

	s.publish(ctx, unit.GetDomainEvents())
	unit.ClearDomainEvents()
	s.logger.Info("Unit tagged",
		zap.String("unit_id", unit.ID.String()),
		zap.String("code", unit.Code),
		zap.String("group", unit.GroupKey().String()),
		zap.String("actor_id", req.Actor.ID),
	)
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// Reclassify corrects species, size, grade or height without touching status
func (s *LifecycleService) Reclassify(ctx context.Context, req ReclassifyRequest) (*UnitResponse, error) {
	if req.Patch.IsEmpty() {
		return nil, stock.NewValidationError("classification patch is empty")
	}
	unit, err := s.unitRepo.FindByID(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	changed, err := unit.Reclassify(&req.Patch)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.save(ctx, s.unitRepo, unit, unit.Status, unit.Status); err != nil {
			return nil, err
		}
		s.publish(ctx, unit.GetDomainEvents())
		unit.ClearDomainEvents()
		s.logger.Info("Unit reclassified",
			zap.String("unit_id", unit.ID.String()),
			zap.String("group", unit.GroupKey().String()),
			zap.String("actor_id", req.Actor.ID),
		)
	}
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// Relocate moves a unit to another zone
func (s *LifecycleService) Relocate(ctx context.Context, req RelocateRequest) (*UnitResponse, error) {
	if _, err := s.zoneRepo.FindByID(ctx, req.ZoneID); err != nil {
		return nil, err
	}
	unit, err := s.unitRepo.FindByID(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	changed, err := unit.Relocate(req.ZoneID)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.save(ctx, s.unitRepo, unit, unit.Status, unit.Status); err != nil {
			return nil, err
		}
		s.publish(ctx, unit.GetDomainEvents())
		unit.ClearDomainEvents()
	}
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// Get returns one unit
func (s *LifecycleService) Get(ctx context.Context, id uuid.UUID) (*UnitResponse, error) {
	unit, err := s.unitRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// GetByCode returns the unit carrying a tag code
func (s *LifecycleService) GetByCode(ctx context.Context, code string) (*UnitResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, stock.NewValidationError("tag code is required")
	}
	unit, err := s.unitRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// List returns units matching the filter
func (s *LifecycleService) List(ctx context.Context, req ListUnitsRequest) (*shared.Paginated[UnitResponse], error) {
	page := shared.Page{Page: req.Page, PageSize: req.Size}.Normalize()
	units, total, err := s.unitRepo.List(ctx, req.Filter, page)
	if err != nil {
		return nil, err
	}
	items := make([]UnitResponse, len(units))
	for i := range units {
		items[i] = ToUnitResponse(&units[i])
	}
	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *LifecycleService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// ErrorCode extracts the domain error code from err, or "INTERNAL_ERROR"
func ErrorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}
