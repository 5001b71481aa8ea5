package cmd

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/cost-tracker/internal/core/events"
)

// subscribeEventLogger logs every collection change published on the bus.
func subscribeEventLogger(bus *events.EventBus, logger *slog.Logger) {
	bus.SubscribeAll(events.CostEventTypes, func(ctx context.Context, event events.Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"event_type", event.EventType(),
		}
		if changed, ok := event.(*events.CostChangedEvent); ok {
			attrs = append(attrs,
				"cost_id", changed.CostID,
				"view_size", changed.ViewSize,
				"total", changed.Total.String())
		}
		logger.Debug("collection changed", attrs...)
		return nil
	})
}
