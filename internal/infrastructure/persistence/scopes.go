package persistence

import (
	"strings"

	"github.com/nursery/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// groupScope matches rows carrying the four stock group columns
func groupScope(group stock.GroupKey) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("species_id = ? AND size_label = ? AND zone_id = ? AND grade = ?",
			group.SpeciesID, group.SizeLabel, group.ZoneID, group.Grade)
	}
}

// rollupFilterScope applies a RollupFilter to any table with group columns.
// Plot type is resolved through the zones table.
func rollupFilterScope(filter stock.RollupFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ZoneID != nil {
			db = db.Where("zone_id = ?", *filter.ZoneID)
		}
		if filter.SpeciesID != nil {
			db = db.Where("species_id = ?", *filter.SpeciesID)
		}
		if filter.SizeLabel != "" {
			db = db.Where("size_label = ?", filter.SizeLabel)
		}
		if filter.PlotType != "" {
			db = db.Where("zone_id IN (SELECT id FROM zones WHERE plot_type = ?)", string(filter.PlotType))
		}
		return db
	}
}

func unitFilterScope(filter stock.UnitFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(rollupFilterScope(filter.RollupFilter))
		if filter.Grade != nil {
			db = db.Where("grade = ?", *filter.Grade)
		}
		if len(filter.Statuses) > 0 {
			statuses := make([]string, len(filter.Statuses))
			for i, s := range filter.Statuses {
				statuses[i] = string(s)
			}
			db = db.Where("status IN ?", statuses)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			db = db.Where("LOWER(code) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return db
	}
}
