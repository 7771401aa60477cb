package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trip-hub/contract"
	"trip-hub/domain/event"
)

// SSESink is one live server-sent-events connection. Consume hands the
// event to the streaming goroutine through a buffered channel; the fanout
// worker's per-sink timeout bounds how long a full channel can stall it.
type SSESink struct {
	events chan event.DomainEvent
}

func NewSSESink(buffer int) *SSESink {
	return &SSESink{events: make(chan event.DomainEvent, buffer)}
}

func (s *SSESink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ contract.EventSink = (*SSESink)(nil)

// handleStream is GET /api/groups/{groupID}/stream. It joins the group,
// streams events until the client disconnects, then leaves.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	userID := r.URL.Query().Get("user_id")
	username := r.URL.Query().Get("username")
	if userID == "" || username == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id and username are required"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	sink := NewSSESink(s.sinkBuffer)
	if err := s.chat.Join(r.Context(), groupID, userID, username, sink); err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer s.chat.Leave(groupID, sink)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-sink.events:
			payload, err := json.Marshal(evt)
			if err != nil {
				s.log.Warn("Failed to marshal event", "kind", evt.Kind(), "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind(), payload)
			flusher.Flush()
		}
	}
}
