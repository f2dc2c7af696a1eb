package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleRecordIdempotencyKeyReplayAndMismatch(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	_, handler := mustCreateTestAPI(t, l)

	doReq := func(body, idemKey string) *httptest.ResponseRecorder {
		t.Helper()
		headers := authHeaders()
		if idemKey != "" {
			headers["Idempotency-Key"] = idemKey
		}
		return mustMakeHTTPJSONRequest(t, handler, http.MethodPost, "/api/blockchain/record", []byte(body), headers)
	}

	body1 := `{"recipient":"Bob","verifiedBy":"Joy"}` // missing donor -> 400
	body2 := `{"donor":"Alice","recipient":"Bob","verifiedBy":"Joy"}`

	// First request stores deterministic result for key-1.
	r1 := doReq(body1, "key-1")
	if r1.Code != http.StatusBadRequest {
		t.Fatalf("first request: expected 400, got %d: %s", r1.Code, r1.Body.String())
	}
	firstBody := r1.Body.String()

	// Second identical request should replay exact first response.
	r2 := doReq(body1, "key-1")
	if r2.Code != r1.Code {
		t.Fatalf("replay request: status mismatch got %d want %d", r2.Code, r1.Code)
	}
	if r2.Body.String() != firstBody {
		t.Fatalf("replay request: body mismatch got %q want %q", r2.Body.String(), firstBody)
	}
	if r2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("replay request: missing Idempotent-Replayed header")
	}

	// Same key with a different payload must fail closed.
	r3 := doReq(body2, "key-1")
	if r3.Code != http.StatusConflict {
		t.Fatalf("mismatch request: expected 409, got %d: %s", r3.Code, r3.Body.String())
	}
	if !strings.Contains(r3.Body.String(), "idempotency key reuse with different request") {
		t.Fatalf("mismatch request: unexpected body: %s", r3.Body.String())
	}

	// A new key is processed normally.
	r4 := doReq(body2, "key-2")
	if r4.Code != http.StatusCreated {
		t.Fatalf("new-key request: expected 201, got %d: %s", r4.Code, r4.Body.String())
	}
}

func TestHandleRecordIdempotencyDoesNotMineTwice(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	_, handler := mustCreateTestAPI(t, l)

	body := []byte(`{"donor":"Alice","recipient":"Bob","units":1,"verifiedBy":"Joy"}`)
	headers := authHeaders()
	headers["Idempotency-Key"] = "donation-42"

	r1 := mustMakeHTTPJSONRequest(t, handler, http.MethodPost, "/api/blockchain/record", body, headers)
	r2 := mustMakeHTTPJSONRequest(t, handler, http.MethodPost, "/api/blockchain/record", body, headers)
	if r1.Code != http.StatusCreated || r2.Code != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", r1.Code, r2.Code)
	}
	if r1.Body.String() != r2.Body.String() {
		t.Fatalf("replayed body differs:\n%s\n%s", r1.Body.String(), r2.Body.String())
	}
	if r2.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("replay lost Content-Type: %q", r2.Header().Get("Content-Type"))
	}

	chain, err := l.GetChain(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected one mined block, chain length %d", len(chain))
	}
}

func TestHandleRecordIdempotencyKeyTooLong(t *testing.T) {
	l, _ := mustCreateTestLedger(t, 1)
	_, handler := mustCreateTestAPI(t, l)

	headers := authHeaders()
	headers["Idempotency-Key"] = strings.Repeat("k", idempotencyMaxKeyLen+1)
	rr := mustMakeHTTPJSONRequest(t, handler, http.MethodPost, "/api/blockchain/record",
		[]byte(`{"donor":"A","recipient":"B","verifiedBy":"J"}`), headers)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
