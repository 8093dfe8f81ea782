package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/interfaces/http/dto"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
)

// AllocateRequest is the body of POST /allocations
type AllocateRequest struct {
	SpeciesID string `json:"species_id" binding:"required,uuid"`
	SizeLabel string `json:"size_label" binding:"required,max=32"`
	ZoneID    string `json:"zone_id" binding:"required,uuid"`
	Grade     string `json:"grade" binding:"max=32"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	DealRef   string `json:"deal_ref" binding:"required,max=64"`
}

func (r AllocateRequest) group() stock.GroupKey {
	return stock.GroupKey{
		SpeciesID: uuid.MustParse(r.SpeciesID),
		SizeLabel: r.SizeLabel,
		ZoneID:    uuid.MustParse(r.ZoneID),
		Grade:     r.Grade,
	}
}

// AllocateUnitRequest is the body of POST /allocations/units
type AllocateUnitRequest struct {
	UnitID  string `json:"unit_id" binding:"required,uuid"`
	DealRef string `json:"deal_ref" binding:"required,max=64"`
	Source  string `json:"source" binding:"max=64"`
}

// BindUnitRequest is the body of POST /allocations/:id/bind
type BindUnitRequest struct {
	UnitID string `json:"unit_id" binding:"required,uuid"`
	Source string `json:"source" binding:"max=64"`
}

// ReleaseHoldRequest is the optional body of POST /allocations/:id/release
type ReleaseHoldRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// ListHoldsQuery filters GET /allocations. Group is the canonical
// species/size/zone/grade key.
type ListHoldsQuery struct {
	dto.PageRequest
	Group   string `form:"group" binding:"max=160"`
	DealRef string `form:"deal_ref" binding:"max=64"`
	Status  string `form:"status" binding:"omitempty,oneof=active released expired fulfilled"`
}

// AllocationHandler serves pooled holds and unit allocations
type AllocationHandler struct {
	BaseHandler
	allocations *appstock.AllocationService
	expiration  *appstock.HoldExpirationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations *appstock.AllocationService, expiration *appstock.HoldExpirationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, expiration: expiration}
}

// Allocate places a pooled hold on a stock group. A group without enough
// free stock answers 422 INSUFFICIENT_STOCK with the deficit in details.
//
//	POST /allocations
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	hold, err := h.allocations.Allocate(c.Request.Context(), appstock.AllocateRequest{
		Group:    req.group(),
		Quantity: req.Quantity,
		DealRef:  req.DealRef,
		Actor:    middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, hold)
}

// AllocateUnit reserves one specific ready_for_sale unit for a deal.
//
//	POST /allocations/units
func (h *AllocationHandler) AllocateUnit(c *gin.Context) {
	var req AllocateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.allocations.AllocateUnit(c.Request.Context(), appstock.AllocateUnitRequest{
		UnitID:  uuid.MustParse(req.UnitID),
		DealRef: req.DealRef,
		Actor:   middleware.GetActor(c),
		Source:  req.Source,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List returns holds matching the query filters.
//
//	GET /allocations
func (h *AllocationHandler) List(c *gin.Context) {
	var q ListHoldsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := stock.HoldFilter{DealRef: q.DealRef, Status: stock.HoldStatus(q.Status)}
	if q.Group != "" {
		group, err := stock.ParseGroupKey(q.Group)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		filter.Group = &group
	}

	page := pageOf(q.PageRequest)
	result, err := h.allocations.ListHolds(c.Request.Context(), appstock.ListHoldsRequest{
		Filter: filter,
		Page:   page.Page,
		Size:   page.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns one hold.
//
//	GET /allocations/:id
func (h *AllocationHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	hold, err := h.allocations.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, hold)
}

// Bind fulfils one unit of a pooled hold by reserving a unit of its group.
//
//	POST /allocations/:id/bind
func (h *AllocationHandler) Bind(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req BindUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	hold, err := h.allocations.BindUnit(c.Request.Context(), appstock.BindUnitRequest{
		HoldID: id,
		UnitID: uuid.MustParse(req.UnitID),
		Actor:  middleware.GetActor(c),
		Source: req.Source,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, hold)
}

// Release cancels the unbound remainder of a hold.
//
//	POST /allocations/:id/release
func (h *AllocationHandler) Release(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req ReleaseHoldRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	hold, err := h.allocations.Release(c.Request.Context(), id, req.Reason, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, hold)
}

// Expire closes every active hold past its deadline.
//
//	POST /allocations/expire
func (h *AllocationHandler) Expire(c *gin.Context) {
	stats, err := h.expiration.ReleaseExpired(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
