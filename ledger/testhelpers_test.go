package ledger

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustNewLedger(t *testing.T, store Store, difficulty int) *Ledger {
	t.Helper()

	l, err := New(Config{Store: store, Difficulty: difficulty, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	return l
}

func mustCreateFileLedger(t *testing.T, difficulty int) (*Ledger, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger", "chain.json")
	return mustNewLedger(t, NewFileStore(path), difficulty), path
}

func mustAddBlock(t *testing.T, l *Ledger, data any) Block {
	t.Helper()

	block, err := l.AddBlock(t.Context(), data)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	return block
}

func mustGetChain(t *testing.T, l *Ledger) []Block {
	t.Helper()

	chain, err := l.GetChain(t.Context())
	if err != nil {
		t.Fatalf("GetChain: %v", err)
	}
	return chain
}

func mustMine(t *testing.T, m *Miner, b Block) Block {
	t.Helper()

	mined, err := m.Mine(b)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	return mined
}

func donation(donor, recipient string, units int) map[string]any {
	return map[string]any{
		"donor":      donor,
		"recipient":  recipient,
		"units":      units,
		"verifiedBy": "Nurse Joy",
	}
}

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store with failure injection and call counting.
type memStore struct {
	mu       sync.Mutex
	chain    []Block
	loadErr  error
	saveErr  error
	loads    int
	saves    int
	loadGate chan struct{}
	closed   bool
}

func (s *memStore) Location() string { return "memory" }

func (s *memStore) Load() ([]Block, error) {
	if s.loadGate != nil {
		<-s.loadGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.chain == nil {
		return nil, ErrNotFound
	}
	return cloneChain(s.chain), nil
}

func (s *memStore) Save(chain []Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.chain = cloneChain(chain)
	return nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) counts() (loads, saves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads, s.saves
}
