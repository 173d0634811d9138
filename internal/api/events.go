package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const streamKeepAlive = 15 * time.Second

// handleEventStream pushes every committed change as a server-sent event.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	changes := s.svc.Changes()
	ch := changes.Subscribe()
	defer changes.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case c := <-ch:
			data, err := json.Marshal(c)
			if err != nil {
				s.log.Error("encode change", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Op, data)
			flusher.Flush()
		}
	}
}
