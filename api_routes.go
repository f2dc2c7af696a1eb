package main

import "net/http"

// registerPublicRoutes adds read-only endpoints.
func (s *APIServer) registerPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/blockchain/summary", s.handleSummary)
	mux.HandleFunc("GET /api/blockchain/verify", s.handleVerify)
	mux.HandleFunc("GET /api/blockchain/recent", s.handleRecent)
	mux.HandleFunc("GET /api/blockchain/entries", s.handleEntries)

	// SSE
	mux.HandleFunc("GET /api/blockchain/events", s.handleEvents)
}

// registerPrivateRoutes adds endpoints that write to the ledger. They are
// always behind auth.
func (s *APIServer) registerPrivateRoutes(mux *http.ServeMux, token string) {
	mux.Handle("POST /api/blockchain/record", requireAuth(token, s.withIdempotency(s.handleRecord)))

	// Dangerous operations
	mux.Handle("POST /api/blockchain/reset", requireAuth(token, http.HandlerFunc(s.handleReset)))
}
