package stock

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Measures are the per-bucket counts of a stock group
type Measures struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Committed int `json:"committed"`
	Harvested int `json:"harvested"`
	Shipped   int `json:"shipped"`
	Planted   int `json:"planted"`
	Untagged  int `json:"untagged"`
	Planned   int `json:"planned"`
	Held      int `json:"held"`
	InField   int `json:"in_field"`
	Rehab     int `json:"rehab"`
	Sold      int `json:"sold"`
	Lost      int `json:"lost"`
}

// Accounted sums the lifecycle buckets that must never exceed Total
func (m Measures) Accounted() int {
	return m.Available + m.Reserved + m.Committed + m.Harvested + m.Shipped + m.Planted
}

// Free is the available quantity not claimed by pooled holds
func (m Measures) Free() int {
	if m.Held >= m.Available {
		return 0
	}
	return m.Available - m.Held
}

func (m *Measures) count(s Status) {
	m.Total++
	switch s {
	case StatusReadyForSale:
		m.Available++
	case StatusReserved:
		m.Reserved++
	case StatusDigOrdered:
		m.Committed++
	case StatusDug:
		m.Harvested++
	case StatusShipped:
		m.Shipped++
	case StatusPlanted:
		m.Planted++
	case StatusSold:
		m.Sold++
	case StatusRehab:
		m.Rehab++
	case StatusDead, StatusCancelled:
		m.Lost++
	default:
		if s.IsPreCommitment() {
			m.InField++
		}
	}
}

func (m *Measures) add(o Measures) {
	m.Total += o.Total
	m.Available += o.Available
	m.Reserved += o.Reserved
	m.Committed += o.Committed
	m.Harvested += o.Harvested
	m.Shipped += o.Shipped
	m.Planted += o.Planted
	m.Untagged += o.Untagged
	m.Planned += o.Planned
	m.Held += o.Held
	m.InField += o.InField
	m.Rehab += o.Rehab
	m.Sold += o.Sold
	m.Lost += o.Lost
}

// RollupRow is the derived summary of one stock group
type RollupRow struct {
	Key GroupKey `json:"group"`
	Measures
}

// SpeciesSummary sums every row of a species across zones and sizes
type SpeciesSummary struct {
	SpeciesID uuid.UUID `json:"species_id"`
	Zones     int       `json:"zones"`
	Groups    int       `json:"groups"`
	Measures
}

// WarningKind names a derived alert
type WarningKind string

const (
	WarnDepleted       WarningKind = "depleted"
	WarnHarvestBacklog WarningKind = "harvest_backlog"
	WarnTaggingBacklog WarningKind = "tagging_backlog"
	WarnOverbook       WarningKind = "overbook"
	WarnOverallocated  WarningKind = "overallocated"
)

// ConsistencyWarning is an alert derived from a rollup row. It is not a
// failure but callers must surface it.
type ConsistencyWarning struct {
	Kind    WarningKind `json:"kind"`
	Group   GroupKey    `json:"group"`
	Message string      `json:"message"`
}

// UnitSnapshot is the projection of a unit the rollup needs
type UnitSnapshot struct {
	Group  GroupKey
	Status Status
}

// RollupSnapshot is the read-side input of ComputeRollup
type RollupSnapshot struct {
	Units     []UnitSnapshot
	Plantings []Planting
	Holds     []Hold
	At        time.Time
}

// RollupResult is the output of ComputeRollup
type RollupResult struct {
	Rows     []RollupRow          `json:"rows"`
	Species  []SpeciesSummary     `json:"species"`
	Warnings []ConsistencyWarning `json:"warnings"`
}

// ComputeRollup groups the snapshot by stock group and derives alerts.
// It is pure: the same snapshot always yields an identical result.
func ComputeRollup(s RollupSnapshot) RollupResult {
	groups := make(map[GroupKey]*Measures)
	get := func(k GroupKey) *Measures {
		m, ok := groups[k]
		if !ok {
			m = &Measures{}
			groups[k] = m
		}
		return m
	}

	for _, u := range s.Units {
		get(u.Group).count(u.Status)
	}
	for _, p := range s.Plantings {
		get(p.Group).Planned += p.PlannedQuantity
	}
	holdsByGroup := make(map[GroupKey][]Hold)
	for _, h := range s.Holds {
		holdsByGroup[h.Group] = append(holdsByGroup[h.Group], h)
	}
	for k, holds := range holdsByGroup {
		if held := HeldQuantity(holds, s.At); held > 0 {
			get(k).Held += held
		}
	}

	rows := make([]RollupRow, 0, len(groups))
	for k, m := range groups {
		if m.Planned > m.Total {
			m.Untagged = m.Planned - m.Total
		}
		rows = append(rows, RollupRow{Key: k, Measures: *m})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })

	warnings := make([]ConsistencyWarning, 0)
	for _, r := range rows {
		warnings = append(warnings, Evaluate(r)...)
	}

	return RollupResult{
		Rows:     rows,
		Species:  summarizeSpecies(rows),
		Warnings: warnings,
	}
}

// Evaluate derives the alerts of one row in a fixed order
func Evaluate(r RollupRow) []ConsistencyWarning {
	var out []ConsistencyWarning
	warn := func(kind WarningKind, format string, args ...any) {
		out = append(out, ConsistencyWarning{Kind: kind, Group: r.Key, Message: fmt.Sprintf(format, args...)})
	}
	if r.Total > 0 && r.Available == 0 {
		warn(WarnDepleted, "no units available out of %d tagged", r.Total)
	}
	if r.Committed > 0 && r.Harvested == 0 {
		warn(WarnHarvestBacklog, "%d units ordered for dig, none dug", r.Committed)
	}
	if r.Untagged > 0 {
		warn(WarnTaggingBacklog, "%d of %d planned trees are not tagged", r.Untagged, r.Planned)
	}
	if r.Reserved > r.Available {
		warn(WarnOverbook, "reserved %d exceeds available %d", r.Reserved, r.Available)
	}
	if r.Held > r.Available {
		warn(WarnOverallocated, "pooled allocations %d exceed available %d", r.Held, r.Available)
	}
	return out
}

func summarizeSpecies(rows []RollupRow) []SpeciesSummary {
	index := make(map[uuid.UUID]int)
	zones := make(map[uuid.UUID]map[uuid.UUID]struct{})
	var out []SpeciesSummary
	for _, r := range rows {
		i, ok := index[r.Key.SpeciesID]
		if !ok {
			i = len(out)
			index[r.Key.SpeciesID] = i
			out = append(out, SpeciesSummary{SpeciesID: r.Key.SpeciesID})
			zones[r.Key.SpeciesID] = make(map[uuid.UUID]struct{})
		}
		out[i].Measures.add(r.Measures)
		out[i].Groups++
		zones[r.Key.SpeciesID][r.Key.ZoneID] = struct{}{}
	}
	for i := range out {
		out[i].Zones = len(zones[out[i].SpeciesID])
	}
	return out
}
