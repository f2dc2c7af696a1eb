package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raktchain/raktchain/ledger"
)

func TestWriteInternal_RedactsClientResponseButLogsDetail(t *testing.T) {
	// Put the ledger under a regular file so every store write fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := ledger.New(ledger.Config{
		Store:      ledger.NewFileStore(filepath.Join(blocker, "ledger", "chain.json")),
		Difficulty: 1,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	var logs bytes.Buffer
	s := NewAPIServer(l, t.TempDir(), ledger.BackendFile, slog.New(slog.NewJSONHandler(&logs, nil)))

	resp := mustMakeHTTPJSONRequest(t, s.Handler(testToken), http.MethodGet, "/api/blockchain/summary", nil, nil)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d (body=%q)", resp.Code, resp.Body.String())
	}

	// Client body should contain only the generic client message.
	body := resp.Body.String()
	if !strings.Contains(body, `"error":"internal error"`) {
		t.Fatalf("expected generic client error, got %q", body)
	}
	if strings.Contains(body, blocker) || strings.Contains(body, "not a directory") {
		t.Fatalf("client response leaked internal details: %q", body)
	}

	// Logs should contain the detailed underlying error (path/state).
	logText := logs.String()
	if !strings.Contains(logText, "API internal error: GET /api/blockchain/summary:") {
		t.Fatalf("expected API internal error log prefix, got %q", logText)
	}
	if !strings.Contains(logText, blocker) {
		t.Fatalf("expected logs to include underlying error details (path), got %q", logText)
	}
}
