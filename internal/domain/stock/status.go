package stock

import (
	"fmt"
	"strings"
)

// Status is the lifecycle stage a unit currently occupies.
// The set is closed: the database enforces it with a CHECK constraint and
// ParseStatus rejects anything outside it.
type Status string

// Main flow statuses
const (
	StatusInZone         Status = "in_zone"
	StatusSelectedForDig Status = "selected_for_dig"
	StatusRootPrune1     Status = "root_prune_1"
	StatusRootPrune2     Status = "root_prune_2"
	StatusRootPrune3     Status = "root_prune_3"
	StatusRootPrune4     Status = "root_prune_4"
	StatusDigOrdered     Status = "dig_ordered"
	StatusDug            Status = "dug"
	StatusReadyForSale   Status = "ready_for_sale"
	StatusReserved       Status = "reserved"
	StatusShipped        Status = "shipped"
	StatusPlanted        Status = "planted"
	StatusSold           Status = "sold"
)

// Side branch statuses, reachable only through corrections
const (
	StatusRehab     Status = "rehab"
	StatusDead      Status = "dead"
	StatusCancelled Status = "cancelled"
)

// InitialStatus is the status of a freshly tagged unit and the starting
// point of ledger replay.
const InitialStatus = StatusInZone

var allStatuses = []Status{
	StatusInZone,
	StatusSelectedForDig,
	StatusRootPrune1,
	StatusRootPrune2,
	StatusRootPrune3,
	StatusRootPrune4,
	StatusDigOrdered,
	StatusDug,
	StatusReadyForSale,
	StatusReserved,
	StatusShipped,
	StatusPlanted,
	StatusSold,
	StatusRehab,
	StatusDead,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	m := make(map[Status]struct{}, len(allStatuses))
	for _, s := range allStatuses {
		m[s] = struct{}{}
	}
	return m
}()

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts raw input into a Status
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	if !s.IsValid() {
		return "", NewValidationError(fmt.Sprintf("unknown lifecycle status %q", raw))
	}
	return s, nil
}

// String returns the wire value
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s belongs to the closed enum
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether the unit has left inventory for good.
// Terminal units keep their record for audit.
func (s Status) IsTerminal() bool {
	return s == StatusDead || s == StatusCancelled
}

// IsSideBranch reports whether s is outside the normal flow
func (s Status) IsSideBranch() bool {
	return s == StatusRehab || s == StatusDead || s == StatusCancelled
}

// IsRootPrune reports whether s is one of the root prune steps
func (s Status) IsRootPrune() bool {
	return pruneRank(s) > 0
}

// IsPreCommitment reports whether s sits before the dig order in the flow
func (s Status) IsPreCommitment() bool {
	return s == StatusInZone || s == StatusSelectedForDig || s.IsRootPrune()
}

// IsDealBound reports whether a unit in s stays linked to its deal
func (s Status) IsDealBound() bool {
	switch s {
	case StatusReserved, StatusShipped, StatusPlanted, StatusSold:
		return true
	}
	return false
}

// pruneRank orders the prune chain; selected_for_dig is its root at rank 0.
func pruneRank(s Status) int {
	switch s {
	case StatusRootPrune1:
		return 1
	case StatusRootPrune2:
		return 2
	case StatusRootPrune3:
		return 3
	case StatusRootPrune4:
		return 4
	}
	return 0
}
