package httpserver

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

// streamBids serves the snapshot stream. The last published snapshot is
// sent immediately so new subscribers never start blank; afterwards the
// loop alternates between fresh snapshots and keep-alive comments.
func (s *server) streamBids(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Content-Encoding", "identity")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if snap := s.bus.Peek(); snap != nil {
		if !writeBidsEvent(w, snap) {
			return
		}
		flusher.Flush()
	}

	ctx := r.Context()
	observability.Telemetry().IncCounter("sse_subscribers_total", 1, nil)
	for {
		snap := s.bus.WaitUpdate(ctx, s.waitTimeout)
		if ctx.Err() != nil {
			return
		}
		if snap == nil {
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		} else if !writeBidsEvent(w, snap) {
			return
		}
		flusher.Flush()
	}
}

func writeBidsEvent(w http.ResponseWriter, snap *schema.Snapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		return writeErrorEvent(w, "ENCODE", err.Error())
	}
	_, werr := fmt.Fprintf(w, "event: bids\ndata: %s\n\n", data)
	return werr == nil
}

func writeErrorEvent(w http.ResponseWriter, code, message string) bool {
	data, err := json.Marshal(schema.NewErrorPayload(code, message))
	if err != nil {
		return false
	}
	_, werr := fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	return werr == nil
}
