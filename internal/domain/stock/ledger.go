package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a ledger entry
type EventType string

const (
	EventTypeStatusChange EventType = "status_change"
	EventTypeCorrection   EventType = "correction"
)

// Event is one immutable ledger entry recording a status change of a unit.
// Sequence is the unit version produced by the change; it is unique per unit
// and strictly increasing, though not contiguous.
type Event struct {
	ID           uuid.UUID
	UnitID       uuid.UUID
	Sequence     int
	Type         EventType
	OccurredAt   time.Time
	FromStatus   Status
	ToStatus     Status
	Actor        string
	Source       string
	ContextType  ContextType
	ContextID    string
	Notes        string
	IsCorrection bool
}

// NewEvent creates a status change entry
func NewEvent(unitID uuid.UUID, sequence int, from, to Status, at time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		UnitID:     unitID,
		Sequence:   sequence,
		Type:       EventTypeStatusChange,
		OccurredAt: at,
		FromStatus: from,
		ToStatus:   to,
	}
}

// WithActor sets who performed the change
func (e *Event) WithActor(actor string) *Event {
	e.Actor = actor
	return e
}

// WithSource sets the free-text origin tag
func (e *Event) WithSource(source string) *Event {
	e.Source = source
	return e
}

// WithContext links the entry to a workflow document
func (e *Event) WithContext(ct ContextType, id string) *Event {
	e.ContextType = ct
	e.ContextID = id
	return e
}

// WithNotes attaches operator notes
func (e *Event) WithNotes(notes string) *Event {
	e.Notes = strings.TrimSpace(notes)
	return e
}

// MarkCorrection flags the entry as an out-of-flow correction
func (e *Event) MarkCorrection() *Event {
	e.IsCorrection = true
	e.Type = EventTypeCorrection
	return e
}

// ReplayGap records an entry whose from_status does not continue the chain
type ReplayGap struct {
	Sequence int    `json:"sequence"`
	Expected Status `json:"expected_from"`
	Found    Status `json:"found_from"`
}

// ReplayReport is the result of rebuilding a unit's status from its ledger
type ReplayReport struct {
	UnitID      uuid.UUID   `json:"unit_id"`
	Cached      Status      `json:"cached_status"`
	Replayed    Status      `json:"replayed_status"`
	EventCount  int         `json:"event_count"`
	Corrections int         `json:"corrections"`
	Consistent  bool        `json:"consistent"`
	Gaps        []ReplayGap `json:"gaps,omitempty"`
}

// Replay applies each to_status in ascending order starting from the initial
// status and compares the outcome with the cached status.
func Replay(unitID uuid.UUID, cached Status, events []Event) ReplayReport {
	report := ReplayReport{
		UnitID:     unitID,
		Cached:     cached,
		Replayed:   InitialStatus,
		EventCount: len(events),
	}
	for _, e := range events {
		if e.FromStatus != report.Replayed {
			report.Gaps = append(report.Gaps, ReplayGap{
				Sequence: e.Sequence,
				Expected: report.Replayed,
				Found:    e.FromStatus,
			})
		}
		if e.IsCorrection {
			report.Corrections++
		}
		report.Replayed = e.ToStatus
	}
	report.Consistent = report.Replayed == cached && len(report.Gaps) == 0
	return report
}
