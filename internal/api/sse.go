package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ssePushInterval is the tail cadence.
const ssePushInterval = time.Second

// handleStream tails the store over server-sent events. The cursor is the
// store's monotonic sequence number, so events sharing a second are never
// skipped across ticks. Each tick emits one frame with the new events, or a
// comment keep-alive when there are none.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Capture the cursor before the headers go out: everything appended
	// after the client sees the response belongs to the stream.
	cursor := s.store.LastSeq()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	ticker := time.NewTicker(ssePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		pending := s.store.EventsSince(cursor)
		if len(pending) > 0 {
			cursor = pending[len(pending)-1].Seq
		}

		matched := pending[:0]
		for _, e := range pending {
			if filter.Match(e) {
				matched = append(matched, e)
			}
		}

		if len(matched) == 0 {
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
			continue
		}

		payload, err := json.Marshal(matched)
		if err != nil {
			s.logger.Warn("encoding sse frame", zap.Error(err))
			continue
		}
		if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			// Client went away; exit cleanly.
			return
		}
		flusher.Flush()
	}
}
