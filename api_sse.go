package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raktchain/raktchain/ledger"
)

const sseKeepalive = 30 * time.Second

// handleEvents streams ledger changes via Server-Sent Events.
// Event types: connected, new_block, reset
// GET /api/blockchain/events
func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	// Disable write timeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		writeError(w, http.StatusInternalServerError, "failed to initialize SSE stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := s.ledger.Subscribe()
	defer s.ledger.Unsubscribe(events)

	if err := sendSSE(w, flusher, "connected", map[string]any{
		"totalTransactions": summary.TotalTransactions,
		"difficulty":        summary.Difficulty,
	}); err != nil {
		s.log.Debug("SSE connected event write failed", "err", err)
		return
	}

	// Keepalive ticker (SSE comment line to prevent proxies from killing idle connections)
	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case evt, ok := <-events:
			if !ok {
				return // ledger closed
			}
			if err := sendSSE(w, flusher, evt.Type, eventPayload(evt)); err != nil {
				return
			}

		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func eventPayload(evt ledger.Event) any {
	if evt.Type == ledger.EventReset {
		return map[string]any{
			"genesisHash": evt.Block.Hash,
		}
	}
	return evt.Block
}

// sendSSE writes a single SSE event.
func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
