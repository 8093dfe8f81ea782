package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
)

// CreateZoneRequest is the body of POST /zones
type CreateZoneRequest struct {
	Code     string `json:"code" binding:"required,max=32"`
	Name     string `json:"name" binding:"max=128"`
	PlotType string `json:"plot_type" binding:"required,plot_type"`
}

// SetPlantingRequest is the body of PUT /zones/:id/plantings
type SetPlantingRequest struct {
	SpeciesID       string `json:"species_id" binding:"required,uuid"`
	SizeLabel       string `json:"size_label" binding:"required,max=32"`
	Grade           string `json:"grade" binding:"max=32"`
	PlannedQuantity *int   `json:"planned_quantity" binding:"required,gte=0"`
}

// ListZonesQuery filters GET /zones
type ListZonesQuery struct {
	PlotType string `form:"plot_type" binding:"omitempty,plot_type"`
}

// ZoneHandler serves zones and their planting plans
type ZoneHandler struct {
	BaseHandler
	zones *appstock.ZoneService
}

// NewZoneHandler creates a new ZoneHandler
func NewZoneHandler(zones *appstock.ZoneService) *ZoneHandler {
	return &ZoneHandler{zones: zones}
}

// Create registers a growing area.
//
//	POST /zones
func (h *ZoneHandler) Create(c *gin.Context) {
	var req CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	zone, err := h.zones.Create(c.Request.Context(), appstock.CreateZoneRequest{
		Code:     req.Code,
		Name:     req.Name,
		PlotType: stock.PlotType(req.PlotType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, zone)
}

// List returns zones, optionally of one plot type.
//
//	GET /zones?plot_type=
func (h *ZoneHandler) List(c *gin.Context) {
	var q ListZonesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	zones, err := h.zones.List(c.Request.Context(), stock.PlotType(q.PlotType))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, zones)
}

// SetPlanting records the planned quantity of one stock group in the zone.
//
//	PUT /zones/:id/plantings
func (h *ZoneHandler) SetPlanting(c *gin.Context) {
	zoneID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req SetPlantingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	planting, err := h.zones.SetPlanting(c.Request.Context(), appstock.SetPlantingRequest{
		ZoneID:          zoneID,
		SpeciesID:       uuid.MustParse(req.SpeciesID),
		SizeLabel:       req.SizeLabel,
		Grade:           req.Grade,
		PlannedQuantity: *req.PlannedQuantity,
		Actor:           middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, planting)
}
