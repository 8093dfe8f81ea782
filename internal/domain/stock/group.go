package stock

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GroupKey identifies a stock group: the pooled, fungible view of units that
// share species, size, zone and grade. It has no identity of its own.
type GroupKey struct {
	SpeciesID uuid.UUID `json:"species_id"`
	SizeLabel string    `json:"size_label"`
	ZoneID    uuid.UUID `json:"zone_id"`
	Grade     string    `json:"grade,omitempty"`
}

const groupKeySep = "/"

// String renders the canonical key: species/size/zone/grade
func (k GroupKey) String() string {
	return strings.Join([]string{k.SpeciesID.String(), k.SizeLabel, k.ZoneID.String(), k.Grade}, groupKeySep)
}

// Validate checks that the key names a concrete group
func (k GroupKey) Validate() error {
	if k.SpeciesID == uuid.Nil {
		return NewValidationError("stock group requires a species")
	}
	if k.ZoneID == uuid.Nil {
		return NewValidationError("stock group requires a zone")
	}
	if strings.TrimSpace(k.SizeLabel) == "" {
		return NewValidationError("stock group requires a size label")
	}
	if strings.Contains(k.SizeLabel, groupKeySep) || strings.Contains(k.Grade, groupKeySep) {
		return NewValidationError(fmt.Sprintf("size and grade may not contain %q", groupKeySep))
	}
	return nil
}

// Less orders keys by species, size, zone, then grade
func (k GroupKey) Less(o GroupKey) bool {
	if c := strings.Compare(k.SpeciesID.String(), o.SpeciesID.String()); c != 0 {
		return c < 0
	}
	if k.SizeLabel != o.SizeLabel {
		return k.SizeLabel < o.SizeLabel
	}
	if c := strings.Compare(k.ZoneID.String(), o.ZoneID.String()); c != 0 {
		return c < 0
	}
	return k.Grade < o.Grade
}

// ParseGroupKey parses the canonical string form
func ParseGroupKey(raw string) (GroupKey, error) {
	parts := strings.Split(raw, groupKeySep)
	if len(parts) != 4 {
		return GroupKey{}, NewValidationError(fmt.Sprintf("malformed stock group key %q", raw))
	}
	species, err := uuid.Parse(parts[0])
	if err != nil {
		return GroupKey{}, NewValidationError(fmt.Sprintf("malformed species id in group key %q", raw))
	}
	zone, err := uuid.Parse(parts[2])
	if err != nil {
		return GroupKey{}, NewValidationError(fmt.Sprintf("malformed zone id in group key %q", raw))
	}
	k := GroupKey{SpeciesID: species, SizeLabel: parts[1], ZoneID: zone, Grade: parts[3]}
	return k, k.Validate()
}
