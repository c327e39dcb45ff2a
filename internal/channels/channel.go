// Package channels forwards finalized turn events to external surfaces.
package channels

import (
	"context"
	"log/slog"

	"github.com/parlor/parlor/internal/bus"
)

// Sink defines the interface for outbound event surfaces (Slack, Kafka).
type Sink interface {
	// Name returns the sink name (e.g. "slack").
	Name() string
	// Deliver forwards one turn event. Sinks decide which kinds they carry.
	Deliver(ctx context.Context, ev *bus.Event) error
	// Close releases sink resources.
	Close() error
}

// Attach subscribes a sink to the bus. Delivery failures are logged, never
// propagated; a broken sink must not stall turn resolution.
func Attach(ctx context.Context, b *bus.EventBus, sink Sink) {
	b.Subscribe(func(ev *bus.Event) {
		if err := sink.Deliver(ctx, ev); err != nil {
			slog.Warn("Sink delivery failed", "sink", sink.Name(), "kind", ev.Kind, "error", err)
		}
	})
	slog.Info("Sink attached", "sink", sink.Name())
}
