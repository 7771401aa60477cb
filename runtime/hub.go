package runtime

import (
	"log/slog"

	"trip-hub/contract"
	"trip-hub/domain/event"
)

// Hub is the enqueue side of the broadcast pipeline. Events pushed here are
// drained by a single fanout worker, which is what gives every group FIFO
// delivery: one consumer, one order. No cross-group ordering is implied.
type Hub struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewHub(log *slog.Logger, bufferSize int) *Hub {
	return &Hub{log: log, events: make(chan event.DomainEvent, bufferSize)}
}

// Broadcast enqueues an event for delivery to its group. When the channel
// is full the event is dropped rather than blocking the caller; delivery is
// best-effort by design.
func (h *Hub) Broadcast(e event.DomainEvent) {
	select {
	case h.events <- e:
	default:
		h.log.Warn("Event channel full, dropping broadcast", "group", e.GroupID(), "kind", e.Kind())
	}
}

// Events exposes the drain side for the fanout worker.
func (h *Hub) Events() <-chan event.DomainEvent { return h.events }

var _ contract.IHub = (*Hub)(nil)
