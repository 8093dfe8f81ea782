package stock

import (
	"context"
	"time"

	"github.com/nursery/backend/internal/domain/stock"
)

// Allocation outcomes reported to Metrics
const (
	AllocationAccepted     = "accepted"
	AllocationInsufficient = "insufficient"
	AllocationLockBusy     = "lock_busy"
)

// Metrics receives service-level measurements
type Metrics interface {
	RecordTransition(ctx context.Context, class stock.Classification, to stock.Status, d time.Duration)
	RecordRejected(ctx context.Context, code string)
	RecordAllocation(ctx context.Context, outcome string, quantity int)
	RecordHoldsExpired(ctx context.Context, n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(context.Context, stock.Classification, stock.Status, time.Duration) {}
func (noopMetrics) RecordRejected(context.Context, string)                                              {}
func (noopMetrics) RecordAllocation(context.Context, string, int)                                       {}
func (noopMetrics) RecordHoldsExpired(context.Context, int)                                             {}
