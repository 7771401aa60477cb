package workers

import (
	"context"
	"log/slog"
	"time"

	"trip-hub/contract"
	"trip-hub/domain/event"
)

// Fanout drains the hub channel and delivers each event to the live
// connections of its group.
//
// It provides best-effort fan-out: a slow or failing sink gets a bounded
// delivery window and is then skipped, so one connection can never block
// delivery to the others. Being the only consumer of the channel, it also
// guarantees that events for one group reach every sink in the order they
// were broadcast.
type Fanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewFanout(log *slog.Logger, events <-chan event.DomainEvent,
	registry contract.IRegistry, sinkTimeout time.Duration) *Fanout {
	return &Fanout{log: log, events: events, registry: registry, sinkTimeout: sinkTimeout}
}

func (w *Fanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.deliver(ctx, evt)
		}
	}
}

func (w *Fanout) deliver(ctx context.Context, evt event.DomainEvent) {
	sinks := w.registry.SinksFor(evt.GroupID())
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Debug("Sink delivery failed",
				"group", evt.GroupID(), "kind", evt.Kind(), "error", err)
		}
		cancel()
	}
}
