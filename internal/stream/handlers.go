package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler serves server-sent events for homepage live updates.
type Handler struct {
	Hub *Hub
	Log zerolog.Logger
}

// Homepage handles GET /stream/homepage as an SSE stream. The subscription is
// scoped to the connection and torn down when the client disconnects.
func (h *Handler) Homepage(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		http.Error(w, "stream not configured", http.StatusInternalServerError)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.Hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Log.Warn().Err(err).Str("topic", ev.Topic).Msg("dropping unencodable stream event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data)
			flusher.Flush()
		}
	}
}
