package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/forcetree/pkg/errors"
	"github.com/matzehuels/forcetree/pkg/render/forcetree/sink"
)

// heartbeat keeps idle event streams open through proxies.
var heartbeat = 15 * time.Second

// handleEvents streams a view's frames, tooltips and transforms as
// Server-Sent Events named after sink event types. The stream ends when the
// client leaves or the view is disposed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	lv, err := s.getView(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "streaming not supported"))
		return
	}

	events, cancel := lv.stream.Subscribe()
	defer func() {
		cancel()
		lv.touch()
	}()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 2000\n\n")
	flusher.Flush()

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
			if ev.Type == sink.EventDispose {
				return
			}
		}
	}
}
