package handler

import (
	"github.com/gin-gonic/gin"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
)

// RollupQuery filters GET /rollup. Empty fields match every group.
type RollupQuery struct {
	ZoneID    string `form:"zone_id" binding:"omitempty,uuid"`
	SpeciesID string `form:"species_id" binding:"omitempty,uuid"`
	SizeLabel string `form:"size_label" binding:"max=32"`
	PlotType  string `form:"plot_type" binding:"omitempty,plot_type"`
}

// RollupHandler serves the stock rollup
type RollupHandler struct {
	BaseHandler
	rollup *appstock.RollupService
}

// NewRollupHandler creates a new RollupHandler
func NewRollupHandler(rollup *appstock.RollupService) *RollupHandler {
	return &RollupHandler{rollup: rollup}
}

// Get computes per-group measures, species summaries and consistency
// warnings.
//
//	GET /rollup
func (h *RollupHandler) Get(c *gin.Context) {
	var q RollupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.rollup.Compute(c.Request.Context(), stock.RollupFilter{
		ZoneID:    optionalUUID(q.ZoneID),
		SpeciesID: optionalUUID(q.SpeciesID),
		SizeLabel: q.SizeLabel,
		PlotType:  stock.PlotType(q.PlotType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
