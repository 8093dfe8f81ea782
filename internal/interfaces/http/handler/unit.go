package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
)

// UnitHandler serves tagged units, their lifecycle and their ledger
type UnitHandler struct {
	BaseHandler
	lifecycle *appstock.LifecycleService
	ledger    *appstock.LedgerService
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(lifecycle *appstock.LifecycleService, ledger *appstock.LedgerService) *UnitHandler {
	return &UnitHandler{lifecycle: lifecycle, ledger: ledger}
}

// Tag registers a newly tagged tree.
//
//	POST /units
func (h *UnitHandler) Tag(c *gin.Context) {
	var req TagUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	unit, err := h.lifecycle.Tag(c.Request.Context(), appstock.TagUnitRequest{
		Code:        req.Code,
		SpeciesID:   uuid.MustParse(req.SpeciesID),
		SizeLabel:   req.SizeLabel,
		Grade:       req.Grade,
		HeightLabel: req.HeightLabel,
		ZoneID:      uuid.MustParse(req.ZoneID),
		Actor:       middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, unit)
}

// List returns units matching the query filters.
//
//	GET /units
func (h *UnitHandler) List(c *gin.Context) {
	var q ListUnitsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page := pageOf(q.PageRequest)
	result, err := h.lifecycle.List(c.Request.Context(), appstock.ListUnitsRequest{
		Filter: q.filter(),
		Page:   page.Page,
		Size:   page.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns one unit with the statuses it may legally move to next. The
// path accepts the unit id or its tag code.
//
//	GET /units/:id
func (h *UnitHandler) Get(c *gin.Context) {
	var (
		unit *appstock.UnitResponse
		err  error
	)
	if id, perr := uuid.Parse(c.Param("id")); perr == nil {
		unit, err = h.lifecycle.Get(c.Request.Context(), id)
	} else {
		unit, err = h.lifecycle.GetByCode(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Transition moves a unit to a new lifecycle status. A repeated request for
// the current status answers 200 with classification "no_op" and no event.
//
//	POST /units/:id/transition
func (h *UnitHandler) Transition(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req TransitionUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.lifecycle.Transition(c.Request.Context(), appstock.TransitionRequest{
		UnitID:         id,
		ToStatus:       boundStatus(req.ToStatus),
		ExpectedStatus: boundStatus(req.ExpectedStatus),
		Notes:          req.Notes,
		Force:          req.Force,
		Actor:          middleware.GetActor(c),
		Source:         sourceOrAPI(req.Source),
		ContextType:    stock.ContextType(req.ContextType),
		ContextID:      req.ContextID,
		Classification: req.Classification.toPatch(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reclassify corrects species, size, grade or height of a unit.
//
//	PATCH /units/:id/classification
func (h *UnitHandler) Reclassify(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req ClassificationPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	unit, err := h.lifecycle.Reclassify(c.Request.Context(), appstock.ReclassifyRequest{
		UnitID: id,
		Patch:  *req.toPatch(),
		Actor:  middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Relocate moves a unit to another zone.
//
//	POST /units/:id/relocate
func (h *UnitHandler) Relocate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req RelocateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	unit, err := h.lifecycle.Relocate(c.Request.Context(), appstock.RelocateRequest{
		UnitID: id,
		ZoneID: uuid.MustParse(req.ZoneID),
		Actor:  middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Timeline returns a page of the unit's ledger, newest first.
//
//	GET /units/:id/timeline?limit=&offset=
func (h *UnitHandler) Timeline(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q TimelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.ledger.Timeline(c.Request.Context(), id, q.Limit, q.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Verify replays the ledger and reports whether it matches the cached status.
//
//	GET /units/:id/verify
func (h *UnitHandler) Verify(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	report, err := h.ledger.Verify(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

func sourceOrAPI(source string) string {
	if source == "" {
		return "api"
	}
	return source
}
