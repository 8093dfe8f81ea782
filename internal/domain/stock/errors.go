package stock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
)

// MsgCorrectionRequiresNotes is the reason carried by a correction without notes
const MsgCorrectionRequiresNotes = "correction requires notes"

// ValidationError rejects a request that is malformed or breaks a lifecycle rule
type ValidationError struct {
	UnitID    uuid.UUID
	Current   Status
	Requested Status
	Reason    string
}

// NewValidationError creates a validation error without unit context
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.UnitID == uuid.Nil {
		return e.Reason
	}
	return fmt.Sprintf("unit %s: %s -> %s: %s", e.UnitID, e.Current, e.Requested, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return shared.NewDomainError(shared.CodeValidation, e.Error())
}

// Details returns the context surfaced to API callers
func (e *ValidationError) Details() map[string]any {
	return transitionDetails(e.UnitID, e.Current, e.Requested)
}

// PermissionError rejects a correction that was not forced by an authorized actor
type PermissionError struct {
	UnitID    uuid.UUID
	Current   Status
	Requested Status
	ActorID   string
	Forced    bool
}

func (e *PermissionError) Error() string {
	if !e.Forced {
		return fmt.Sprintf("unit %s: %s -> %s is a correction and must be forced", e.UnitID, e.Current, e.Requested)
	}
	return fmt.Sprintf("unit %s: actor %q is not allowed to force %s -> %s", e.UnitID, e.ActorID, e.Current, e.Requested)
}

func (e *PermissionError) Unwrap() error {
	return shared.NewDomainError(shared.CodePermissionDenied, e.Error())
}

// Details returns the context surfaced to API callers
func (e *PermissionError) Details() map[string]any {
	d := transitionDetails(e.UnitID, e.Current, e.Requested)
	d["forced"] = e.Forced
	return d
}

// ConflictError signals a compare-and-set mismatch. Callers re-read and retry.
type ConflictError struct {
	UnitID    uuid.UUID
	Expected  Status
	Actual    Status
	Requested Status
}

func (e *ConflictError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("unit %s was modified concurrently; re-read and retry", e.UnitID)
	}
	return fmt.Sprintf("unit %s: expected status %s but found %s; re-read and retry", e.UnitID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return shared.NewDomainError(shared.CodeConflict, e.Error())
}

// Details returns the context surfaced to API callers
func (e *ConflictError) Details() map[string]any {
	d := transitionDetails(e.UnitID, e.Actual, e.Requested)
	d["expected_status"] = string(e.Expected)
	return d
}

// InsufficientStockError rejects a pooled allocation the group cannot cover
type InsufficientStockError struct {
	Group     GroupKey
	Requested int
	Available int
}

// Deficit is how many units the group is short
func (e *InsufficientStockError) Deficit() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock group %s: requested %d, available %d (short %d)",
		e.Group, e.Requested, e.Available, e.Deficit())
}

func (e *InsufficientStockError) Unwrap() error {
	return shared.NewDomainError(shared.CodeInsufficientStock, e.Error())
}

// Details returns the context surfaced to API callers
func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"group":     e.Group.String(),
		"requested": e.Requested,
		"available": e.Available,
		"deficit":   e.Deficit(),
	}
}

// NewInvalidStateError reports an operation the unit's status does not allow
func NewInvalidStateError(unitID uuid.UUID, current Status, msg string) error {
	return shared.NewDomainError(shared.CodeInvalidState,
		fmt.Sprintf("unit %s in status %s: %s", unitID, current, msg))
}

// NewNotFoundError reports a missing aggregate
func NewNotFoundError(kind string, id any) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("%s %v not found", kind, id))
}

func transitionDetails(unitID uuid.UUID, current, requested Status) map[string]any {
	d := map[string]any{}
	if unitID != uuid.Nil {
		d["unit_id"] = unitID.String()
	}
	if current != "" {
		d["current_status"] = string(current)
	}
	if requested != "" {
		d["requested_status"] = string(requested)
	}
	return d
}
