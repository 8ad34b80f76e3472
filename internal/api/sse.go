package api

import (
	"encoding/json"
	"net/http"

	"github.com/hammamikhairi/meditate/internal/engine"
)

// streamEvents sends the current snapshot, then one event per controller
// update, until the client goes away.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if !writeEvent(w, s.ctrl.Snapshot()) {
		return
	}
	flusher.Flush()

	for {
		select {
		case snap, ok := <-events:
			if !ok {
				return
			}
			if !writeEvent(w, snap) {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, snap engine.Snapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("event: snapshot\ndata: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	_, err = w.Write([]byte("\n\n"))
	return err == nil
}
