package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/shared"
)

// HoldStatus is the state of a pooled allocation
type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldReleased  HoldStatus = "released"
	HoldExpired   HoldStatus = "expired"
	HoldFulfilled HoldStatus = "fulfilled"
)

// Hold is a pooled allocation against a stock group. It names a quantity, not
// units; units are bound to it one by one during fulfilment. Holds without a
// bound unit before ExpiresAt stop counting and are swept to expired.
type Hold struct {
	shared.BaseAggregateRoot
	Group         GroupKey
	Quantity      int
	Bound         int
	DealRef       string
	Actor         string
	Status        HoldStatus
	ExpiresAt     *time.Time
	ReleasedAt    *time.Time
	ReleaseReason string
}

// NewHold creates an active hold. A zero ttl means the hold never expires
// and must be released manually.
func NewHold(group GroupKey, quantity int, dealRef, actor string, ttl time.Duration) (*Hold, error) {
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, NewValidationError("allocation quantity must be positive")
	}
	dealRef = strings.TrimSpace(dealRef)
	if dealRef == "" {
		return nil, NewValidationError("allocation requires a deal reference")
	}
	h := &Hold{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Group:             group,
		Quantity:          quantity,
		DealRef:           dealRef,
		Actor:             actor,
		Status:            HoldActive,
	}
	if ttl > 0 {
		exp := h.CreatedAt.Add(ttl)
		h.ExpiresAt = &exp
	}
	h.AddDomainEvent(NewStockAllocatedEvent(h))
	return h, nil
}

// Remaining is the quantity not yet bound to units
func (h *Hold) Remaining() int {
	return h.Quantity - h.Bound
}

// IsExpired reports whether the hold deadline has passed at now
func (h *Hold) IsExpired(now time.Time) bool {
	return h.ExpiresAt != nil && !now.Before(*h.ExpiresAt)
}

// Counts reports whether the hold still claims available stock at now
func (h *Hold) Counts(now time.Time) bool {
	return h.Status == HoldActive && !h.IsExpired(now)
}

// BindUnit records one unit fulfilling the hold
func (h *Hold) BindUnit(unitID uuid.UUID, now time.Time) error {
	if !h.Counts(now) {
		return shared.NewDomainError(shared.CodeInvalidState, "allocation is no longer active")
	}
	h.Bound++
	h.UpdatedAt = now
	h.IncrementVersion()
	if h.Remaining() == 0 {
		h.close(HoldFulfilled, "all units bound", now)
	}
	h.AddDomainEvent(NewHoldUnitBoundEvent(h, unitID))
	return nil
}

// Release cancels the remaining quantity
func (h *Hold) Release(reason string, now time.Time) error {
	if h.Status != HoldActive {
		return shared.NewDomainError(shared.CodeInvalidState, "allocation is already "+string(h.Status))
	}
	if strings.TrimSpace(reason) == "" {
		reason = "released"
	}
	h.close(HoldReleased, reason, now)
	h.IncrementVersion()
	return nil
}

// Expire closes a hold whose deadline has passed
func (h *Hold) Expire(now time.Time) error {
	if h.Status != HoldActive || !h.IsExpired(now) {
		return shared.NewDomainError(shared.CodeInvalidState, "allocation has not expired")
	}
	h.close(HoldExpired, "deadline passed without fulfilment", now)
	h.IncrementVersion()
	return nil
}

func (h *Hold) close(status HoldStatus, reason string, now time.Time) {
	h.Status = status
	h.ReleaseReason = reason
	h.ReleasedAt = &now
	h.UpdatedAt = now
	h.AddDomainEvent(NewHoldClosedEvent(h))
}

// HeldQuantity sums the remaining quantity of holds that still count at now
func HeldQuantity(holds []Hold, now time.Time) int {
	total := 0
	for i := range holds {
		if holds[i].Counts(now) {
			total += holds[i].Remaining()
		}
	}
	return total
}
