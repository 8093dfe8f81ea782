package telemetry

import (
	"context"
	"time"

	"github.com/nursery/backend/internal/domain/stock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const stockMeterName = "github.com/nursery/backend/stock"

// StockMetrics records lifecycle and allocation measurements.
type StockMetrics struct {
	transitions  *Counter
	duration     *Histogram
	rejected     *Counter
	allocations  *Counter
	allocatedQty *Counter
	holdsExpired *Counter
}

// NewStockMetrics registers the nursery instruments on meter.
func NewStockMetrics(meter metric.Meter) (*StockMetrics, error) {
	var (
		m   StockMetrics
		err error
	)
	if m.transitions, err = NewCounter(meter, "nursery.transition.total",
		"Status transitions applied, by classification and target status", "{transition}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "nursery.transition.duration",
		Description: "Time to apply a status transition",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.rejected, err = NewCounter(meter, "nursery.transition.rejected",
		"Transition requests rejected, by error code", "{request}"); err != nil {
		return nil, err
	}
	if m.allocations, err = NewCounter(meter, "nursery.allocation.total",
		"Allocation attempts, by outcome", "{request}"); err != nil {
		return nil, err
	}
	if m.allocatedQty, err = NewCounter(meter, "nursery.allocation.quantity",
		"Trees held by accepted allocations", "{tree}"); err != nil {
		return nil, err
	}
	if m.holdsExpired, err = NewCounter(meter, "nursery.hold.expired",
		"Holds released by the expiry sweep", "{hold}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewStockMetricsFromProvider registers instruments on the provider's meter.
func NewStockMetricsFromProvider(mp *MeterProvider) (*StockMetrics, error) {
	return NewStockMetrics(mp.Meter(stockMeterName))
}

func (m *StockMetrics) RecordTransition(ctx context.Context, class stock.Classification, to stock.Status, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrClassification.String(string(class)),
		AttrToStatus.String(string(to)),
	}
	m.transitions.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs...)
}

func (m *StockMetrics) RecordRejected(ctx context.Context, code string) {
	m.rejected.Inc(ctx, AttrErrorCode.String(code))
}

func (m *StockMetrics) RecordAllocation(ctx context.Context, outcome string, quantity int) {
	m.allocations.Inc(ctx, AttrOutcome.String(outcome))
	if quantity > 0 {
		m.allocatedQty.Add(ctx, int64(quantity), AttrOutcome.String(outcome))
	}
}

func (m *StockMetrics) RecordHoldsExpired(ctx context.Context, n int) {
	if n > 0 {
		m.holdsExpired.Add(ctx, int64(n))
	}
}
