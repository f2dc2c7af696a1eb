package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raktchain/raktchain/ledger"
	"github.com/raktchain/raktchain/protocol/params"
)

// ============================================================================
// Public handlers
// ============================================================================

// handleStatus returns process and ledger stats.
// GET /api/status
func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	chain, err := s.ledger.GetChain(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	tip := chain[len(chain)-1]

	resp := map[string]any{
		"app":        params.AppID,
		"version":    Version,
		"format":     params.FormatVersion,
		"uptime":     int64(time.Since(s.startTime).Seconds()),
		"difficulty": s.ledger.Difficulty(),
		"height":     tip.Index,
		"blocks":     len(chain),
		"tip":        tip.Hash,
		"store":      s.backend,
		"miner":      s.ledger.MinerStats(),
	}
	hash, height, found, err := s.ledger.PersistedTip()
	if err != nil {
		s.log.Warn("failed to read persisted tip", "err", err)
	} else if found {
		resp["persistedTip"] = map[string]any{"hash": hash, "height": height}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSummary returns the transaction count, difficulty and newest record.
// GET /api/blockchain/summary
func (s *APIServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleVerify verifies the live chain.
// GET /api/blockchain/verify
func (s *APIServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.VerifyChain(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleRecent returns the newest records, newest first.
// GET /api/blockchain/recent
func (s *APIServer) handleRecent(w http.ResponseWriter, r *http.Request) {
	chain, err := s.ledger.GetChain(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": recentBlocks(chain, recentEntries),
	})
}

// handleEntries filters and pages records. With format=download the page is
// sent as a pretty-printed attachment.
// GET /api/blockchain/entries
func (s *APIServer) handleEntries(w http.ResponseWriter, r *http.Request) {
	chain, err := s.ledger.GetChain(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	q := parseEntryQuery(r.URL.Query())
	page := queryEntries(chain, q)

	if !q.Download {
		writeJSON(w, http.StatusOK, page)
		return
	}

	body, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	filename := fmt.Sprintf("%s-ledger-%s.json", params.AppID, s.now().UTC().Format(params.TimestampLayout))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ============================================================================
// Private handlers (require auth)
// ============================================================================

// handleRecord anchors a donation record in a new block.
// POST /api/blockchain/record
func (s *APIServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSONObject(w, r)
	if !ok {
		return
	}

	if !truthy(req["donor"]) || !truthy(req["recipient"]) || !truthy(req["verifiedBy"]) {
		writeError(w, http.StatusBadRequest, "donor, recipient, and verifier are required")
		return
	}

	var units any
	if raw, present := req["units"]; present && raw != nil {
		n, ok := positiveNumber(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "units must be a positive number when provided")
			return
		}
		units = n
	}

	record := map[string]any{
		"donor":      req["donor"],
		"recipient":  req["recipient"],
		"units":      units,
		"bloodGroup": orNil(req["bloodGroup"]),
		"campaignId": orNil(req["campaignId"]),
		"location":   orNil(req["location"]),
		"notes":      orNil(req["notes"]),
		"recordedAt": s.now().UTC().Format(params.TimestampLayout),
		"verifiedBy": req["verifiedBy"],
	}

	block, err := s.ledger.AddBlock(r.Context(), record)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Donation record anchored to blockchain",
		"data":    block,
	})
}

// handleReset discards every record and starts over from genesis.
// POST /api/blockchain/reset
func (s *APIServer) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyError(w, err)
		return
	}

	// Require explicit confirmation
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "confirmation required (set confirm: true)")
		return
	}

	chain, err := s.ledger.ResetChain(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.log.Warn("ledger reset via API", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ledger reset to genesis",
		"chain":   chain,
	})
}

// ============================================================================
// Helpers
// ============================================================================

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInternal logs err with the request line and sends the client a
// generic message, so paths and storage details stay server-side.
func (s *APIServer) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error(fmt.Sprintf("API internal error: %s %s: %v", r.Method, r.URL.Path, err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeLedgerError maps ledger errors to status codes.
func (s *APIServer) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.writeInternal(w, r, err)
	}
}

func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
}

// decodeJSONObject reads the request body as a JSON object, keeping numbers
// as json.Number.
func decodeJSONObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeBodyError(w, err)
		return nil, false
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	var req map[string]any
	if err := dec.Decode(&req); err != nil || req == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return req, true
}

// truthy reports whether v is present and not an empty/zero JSON scalar.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func orNil(v any) any {
	if truthy(v) {
		return v
	}
	return nil
}

// positiveNumber accepts a JSON number or a numeric string greater than zero
// and returns it as a json.Number.
func positiveNumber(v any) (json.Number, bool) {
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = strings.TrimSpace(val)
	default:
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return "", false
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), true
}
