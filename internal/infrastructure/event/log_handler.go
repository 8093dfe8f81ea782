package event

import (
	"context"

	"github.com/nursery/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LogHandler writes every domain event to the activity log
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a wildcard handler that logs events
func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger.Named("events")}
}

func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes is empty: the handler receives all events
func (h *LogHandler) EventTypes() []string {
	return nil
}
