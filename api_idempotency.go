package main

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	idempotencyTTL        = 10 * time.Minute
	idempotencyMaxEntries = 1024
	idempotencyMaxKeyLen  = 128
)

type idemState int

const (
	idemStart    idemState = iota // caller processes the request, then complete() or abandon()
	idemReplay                    // res holds the stored response
	idemInFlight                  // same key is still running
	idemMismatch                  // key was used for a different request
)

type idempotencyResult struct {
	status int
	header http.Header
	body   []byte
}

type idempotencyCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*idempotencyEntry
}

type idempotencyEntry struct {
	createdAt time.Time
	reqHash   [32]byte
	inFlight  bool
	result    idempotencyResult
}

func newIdempotencyCache(ttl time.Duration, maxEntries int) *idempotencyCache {
	return &idempotencyCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*idempotencyEntry),
	}
}

func (c *idempotencyCache) getOrStart(now time.Time, key string, reqHash [32]byte) (idemState, idempotencyResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)

	if e, ok := c.entries[key]; ok {
		if e.reqHash != reqHash {
			return idemMismatch, idempotencyResult{}
		}
		if e.inFlight {
			return idemInFlight, idempotencyResult{}
		}
		return idemReplay, e.result
	}

	c.entries[key] = &idempotencyEntry{
		createdAt: now,
		reqHash:   reqHash,
		inFlight:  true,
	}
	c.enforceCapLocked()
	return idemStart, idempotencyResult{}
}

func (c *idempotencyCache) complete(now time.Time, key string, reqHash [32]byte, res idempotencyResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.reqHash != reqHash {
		delete(c.entries, key)
		return
	}
	e.createdAt = now
	e.inFlight = false
	e.result = idempotencyResult{
		status: res.status,
		header: res.header.Clone(),
		body:   bytes.Clone(res.body),
	}
	c.pruneLocked(now)
	c.enforceCapLocked()
}

// abandon forgets key so the client can retry it, used when the request
// failed for reasons a retry might fix.
func (c *idempotencyCache) abandon(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// pruneLocked drops expired entries. In-flight entries are kept regardless
// of age so a slow request cannot be started twice.
func (c *idempotencyCache) pruneLocked(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for k, e := range c.entries {
		if !e.inFlight && now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

// enforceCapLocked evicts the oldest completed entries until the cache is
// within maxEntries. In-flight entries are never evicted, so the cache may
// exceed the cap while many requests are running.
func (c *idempotencyCache) enforceCapLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldestTime time.Time
		for k, e := range c.entries {
			if e.inFlight {
				continue
			}
			if oldestKey == "" || e.createdAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.createdAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(c.entries, oldestKey)
	}
}

func hashRequest(method, path string, body []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// responseCapture forwards writes to the client while keeping a copy for the
// idempotency cache.
type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rc *responseCapture) WriteHeader(status int) {
	if rc.status == 0 {
		rc.status = status
	}
	rc.ResponseWriter.WriteHeader(status)
}

func (rc *responseCapture) Write(p []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	rc.body.Write(p)
	return rc.ResponseWriter.Write(p)
}

// withIdempotency makes a mutating handler safe to retry. Requests without
// an Idempotency-Key header pass straight through. A repeated key with the
// same method, path and body replays the stored response; a repeated key
// with a different request is rejected with 409.
func (s *APIServer) withIdempotency(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			next(w, r)
			return
		}
		if len(key) > idempotencyMaxKeyLen {
			writeError(w, http.StatusBadRequest, "idempotency key too long")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		reqHash := hashRequest(r.Method, r.URL.Path, body)

		state, res := s.idem.getOrStart(s.now(), key, reqHash)
		switch state {
		case idemReplay:
			for k, v := range res.header {
				w.Header()[k] = v
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(res.status)
			w.Write(res.body)
			return
		case idemMismatch:
			writeError(w, http.StatusConflict, "idempotency key reuse with different request")
			return
		case idemInFlight:
			writeError(w, http.StatusConflict, "request with this idempotency key is already in progress")
			return
		}

		rc := &responseCapture{ResponseWriter: w}
		next(rc, r)

		if rc.status == 0 || rc.status >= http.StatusInternalServerError {
			s.idem.abandon(key)
			return
		}
		s.idem.complete(s.now(), key, reqHash, idempotencyResult{
			status: rc.status,
			header: w.Header(),
			body:   rc.body.Bytes(),
		})
	}
}
