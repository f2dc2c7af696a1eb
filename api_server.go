package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/raktchain/raktchain/ledger"
)

const maxRequestBodyBytes = 1 << 20 // 1MB

// APIServer serves the JSON API over a ledger. Read endpoints are public;
// endpoints that change the ledger require the token from the cookie file.
type APIServer struct {
	ledger    *ledger.Ledger
	log       *slog.Logger
	dataDir   string
	backend   string
	server    *http.Server
	idem      *idempotencyCache
	startTime time.Time
	now       func() time.Time
}

// NewAPIServer creates a new API server. backend is reported by /api/status.
func NewAPIServer(l *ledger.Ledger, dataDir, backend string, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		ledger:    l,
		log:       logger.With("component", "api"),
		dataDir:   dataDir,
		backend:   backend,
		idem:      newIdempotencyCache(idempotencyTTL, idempotencyMaxEntries),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Handler returns the full route tree guarded by token.
func (s *APIServer) Handler(token string) http.Handler {
	mux := http.NewServeMux()
	s.registerPublicRoutes(mux)
	s.registerPrivateRoutes(mux, token)

	return maxBodySize(mux, maxRequestBodyBytes)
}

// Start writes a fresh token to the cookie file and begins serving on addr.
func (s *APIServer) Start(addr string) error {
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate auth token: %w", err)
	}

	if err := writeCookie(s.dataDir, token); err != nil {
		deleteCookie(s.dataDir)
		return fmt.Errorf("failed to write cookie: %w", err)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(token),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // record waits for mining
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		deleteCookie(s.dataDir)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.log.Info("API listening", "addr", ln.Addr().String(), "cookie", s.cookiePath())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server and removes the cookie file.
func (s *APIServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warn("API shutdown incomplete", "err", err)
		}
	}
	deleteCookie(s.dataDir)
}

func (s *APIServer) cookiePath() string {
	return filepath.Join(s.dataDir, cookieFilename)
}

// maxBodySize limits request body size to prevent OOM from large payloads.
func maxBodySize(next http.Handler, bytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, bytes)
		next.ServeHTTP(w, r)
	})
}
