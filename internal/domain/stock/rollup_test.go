package stock

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitsIn(group GroupKey, status Status, n int) []UnitSnapshot {
	out := make([]UnitSnapshot, n)
	for i := range out {
		out[i] = UnitSnapshot{Group: group, Status: status}
	}
	return out
}

func testGroup(size string) GroupKey {
	return GroupKey{SpeciesID: uuid.New(), SizeLabel: size, ZoneID: uuid.New()}
}

func warningKinds(ws []ConsistencyWarning, g GroupKey) []WarningKind {
	var kinds []WarningKind
	for _, w := range ws {
		if w.Group == g {
			kinds = append(kinds, w.Kind)
		}
	}
	return kinds
}

func TestComputeRollup_Buckets(t *testing.T) {
	g := testGroup("2in")
	var units []UnitSnapshot
	units = append(units, unitsIn(g, StatusReadyForSale, 4)...)
	units = append(units, unitsIn(g, StatusReserved, 2)...)
	units = append(units, unitsIn(g, StatusDigOrdered, 3)...)
	units = append(units, unitsIn(g, StatusDug, 1)...)
	units = append(units, unitsIn(g, StatusShipped, 1)...)
	units = append(units, unitsIn(g, StatusPlanted, 1)...)
	units = append(units, unitsIn(g, StatusRootPrune2, 2)...)
	units = append(units, unitsIn(g, StatusDead, 1)...)
	units = append(units, unitsIn(g, StatusSold, 1)...)
	units = append(units, unitsIn(g, StatusRehab, 1)...)

	res := ComputeRollup(RollupSnapshot{Units: units, At: time.Now()})
	require.Len(t, res.Rows, 1)
	m := res.Rows[0].Measures

	assert.Equal(t, 17, m.Total)
	assert.Equal(t, 4, m.Available)
	assert.Equal(t, 2, m.Reserved)
	assert.Equal(t, 3, m.Committed)
	assert.Equal(t, 1, m.Harvested)
	assert.Equal(t, 1, m.Shipped)
	assert.Equal(t, 1, m.Planted)
	assert.Equal(t, 2, m.InField)
	assert.Equal(t, 1, m.Lost)
	assert.Equal(t, 1, m.Sold)
	assert.Equal(t, 1, m.Rehab)
	assert.LessOrEqual(t, m.Accounted(), m.Total)
	assert.Empty(t, res.Warnings)
}

func TestComputeRollup_DepletedAndOverbook(t *testing.T) {
	g := testGroup("3in")
	units := append(unitsIn(g, StatusReserved, 3), unitsIn(g, StatusInZone, 7)...)

	res := ComputeRollup(RollupSnapshot{Units: units})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 10, res.Rows[0].Total)
	assert.Equal(t, 0, res.Rows[0].Available)
	assert.Equal(t, []WarningKind{WarnDepleted, WarnOverbook}, warningKinds(res.Warnings, g))
}

func TestComputeRollup_Backlogs(t *testing.T) {
	g := testGroup("5gal")
	units := append(unitsIn(g, StatusDigOrdered, 2), unitsIn(g, StatusReadyForSale, 2)...)
	plantings := []Planting{{Group: g, PlannedQuantity: 10}}

	res := ComputeRollup(RollupSnapshot{Units: units, Plantings: plantings})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 10, res.Rows[0].Planned)
	assert.Equal(t, 6, res.Rows[0].Untagged)
	assert.Equal(t, []WarningKind{WarnHarvestBacklog, WarnTaggingBacklog}, warningKinds(res.Warnings, g))
}

func TestComputeRollup_UntaggedNeverNegative(t *testing.T) {
	g := testGroup("1in")
	res := ComputeRollup(RollupSnapshot{
		Units:     unitsIn(g, StatusReadyForSale, 5),
		Plantings: []Planting{{Group: g, PlannedQuantity: 3}},
	})
	assert.Equal(t, 0, res.Rows[0].Untagged)
}

func TestComputeRollup_PlantingOnlyGroup(t *testing.T) {
	g := testGroup("2in")
	res := ComputeRollup(RollupSnapshot{Plantings: []Planting{{Group: g, PlannedQuantity: 4}}})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0, res.Rows[0].Total)
	assert.Equal(t, 4, res.Rows[0].Untagged)
	assert.Equal(t, []WarningKind{WarnTaggingBacklog}, warningKinds(res.Warnings, g))
}

func TestComputeRollup_Holds(t *testing.T) {
	g := testGroup("2in")
	now := time.Now()
	active, err := NewHold(g, 3, "DEAL-1", "sam", time.Hour)
	require.NoError(t, err)
	expired, err := NewHold(g, 5, "DEAL-2", "sam", time.Minute)
	require.NoError(t, err)
	past := now.Add(-time.Second)
	expired.ExpiresAt = &past

	res := ComputeRollup(RollupSnapshot{
		Units: unitsIn(g, StatusReadyForSale, 2),
		Holds: []Hold{*active, *expired},
		At:    now,
	})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 3, res.Rows[0].Held)
	assert.Equal(t, 0, res.Rows[0].Free())
	assert.Equal(t, []WarningKind{WarnOverallocated}, warningKinds(res.Warnings, g))
}

func TestComputeRollup_SpeciesSummary(t *testing.T) {
	species := uuid.New()
	zoneA, zoneB := uuid.New(), uuid.New()
	a := GroupKey{SpeciesID: species, SizeLabel: "2in", ZoneID: zoneA}
	b := GroupKey{SpeciesID: species, SizeLabel: "2in", ZoneID: zoneB}
	c := GroupKey{SpeciesID: species, SizeLabel: "3in", ZoneID: zoneA}
	other := testGroup("2in")

	var units []UnitSnapshot
	units = append(units, unitsIn(a, StatusReadyForSale, 2)...)
	units = append(units, unitsIn(b, StatusReadyForSale, 3)...)
	units = append(units, unitsIn(c, StatusReserved, 1)...)
	units = append(units, unitsIn(other, StatusDug, 4)...)

	res := ComputeRollup(RollupSnapshot{Units: units})
	require.Len(t, res.Rows, 4)
	require.Len(t, res.Species, 2)

	var summary SpeciesSummary
	for _, s := range res.Species {
		if s.SpeciesID == species {
			summary = s
		}
	}
	assert.Equal(t, 2, summary.Zones)
	assert.Equal(t, 3, summary.Groups)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 5, summary.Available)
	assert.Equal(t, 1, summary.Reserved)
}

func TestComputeRollup_Deterministic(t *testing.T) {
	now := time.Now()
	var units []UnitSnapshot
	var groups []GroupKey
	for i := 0; i < 8; i++ {
		g := testGroup([]string{"1in", "2in"}[i%2])
		groups = append(groups, g)
		for j, s := range AllStatuses() {
			if (i+j)%3 == 0 {
				units = append(units, UnitSnapshot{Group: g, Status: s})
			}
		}
	}
	plantings := []Planting{{Group: groups[0], PlannedQuantity: 50}, {Group: groups[3], PlannedQuantity: 1}}
	snapshot := RollupSnapshot{Units: units, Plantings: plantings, At: now}

	first := ComputeRollup(snapshot)
	for i := 0; i < 5; i++ {
		assert.True(t, reflect.DeepEqual(first, ComputeRollup(snapshot)))
	}

	// reversing input order must not change the output
	reversed := make([]UnitSnapshot, len(units))
	for i := range units {
		reversed[len(units)-1-i] = units[i]
	}
	assert.Equal(t, first, ComputeRollup(RollupSnapshot{Units: reversed, Plantings: plantings, At: now}))

	for i := 1; i < len(first.Rows); i++ {
		assert.True(t, first.Rows[i-1].Key.Less(first.Rows[i].Key))
	}
	for _, r := range first.Rows {
		assert.LessOrEqual(t, r.Accounted(), r.Total)
		assert.GreaterOrEqual(t, r.Untagged, 0)
	}
}
