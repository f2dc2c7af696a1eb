package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raktchain/raktchain/debug"
	"github.com/raktchain/raktchain/protocol/params"
)

// Config holds ledger construction settings.
type Config struct {
	// Store persists the chain. Required.
	Store Store
	// Difficulty is the number of leading zero hex characters each block
	// hash must carry. Values below 1 are raised to 1.
	Difficulty int
	// Hasher defaults to SHA256.
	Hasher Hasher
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now supplies block timestamps; defaults to time.Now.
	Now func() time.Time
}

type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
	stateFailed
)

// initAttempt is one run of load(). Every caller that arrives while it is in
// flight waits on done and receives the same err.
type initAttempt struct {
	done chan struct{}
	err  error
}

// Summary is the header information shown by the API and CLI.
type Summary struct {
	TotalTransactions int    `json:"totalTransactions"`
	Difficulty        int    `json:"difficulty"`
	LastTransaction   *Block `json:"lastTransaction"`
}

// Ledger is a local, single-writer, hash-chained append-only log. Construct
// one per process and share it; all methods are safe for concurrent use.
type Ledger struct {
	store    Store
	miner    *Miner
	verifier *Verifier
	log      *slog.Logger
	now      func() time.Time
	genesis  func() (Block, error)

	stateMu *debug.Mutex
	state   initState
	attempt *initAttempt

	// writeSem serializes AddBlock and ResetChain from reading the tail to
	// publishing the new chain.
	writeSem chan struct{}

	mu    *debug.RWMutex
	chain []Block

	subsMu sync.Mutex
	subs   []chan Event
}

// New creates a ledger. Nothing is read from the store until the first
// operation that needs the chain.
func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	miner, err := NewMiner(cfg.Difficulty, cfg.Hasher)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	l := &Ledger{
		store:    cfg.Store,
		miner:    miner,
		verifier: NewVerifier(miner),
		log:      logger.With("component", "ledger"),
		now:      now,
		stateMu:  debug.NewMutex("ledger.state"),
		writeSem: make(chan struct{}, 1),
		mu:       debug.NewRWMutex("ledger.chain"),
	}
	l.genesis = sync.OnceValues(l.mineGenesis)
	return l, nil
}

// Difficulty returns the configured difficulty.
func (l *Ledger) Difficulty() int { return l.miner.Difficulty() }

// Location describes where the chain is persisted.
func (l *Ledger) Location() string { return l.store.Location() }

// MinerStats returns mining statistics for this ledger.
func (l *Ledger) MinerStats() MinerStats { return l.miner.Stats() }

// tipStore is implemented by stores that record the tip separately from the
// chain document.
type tipStore interface {
	Tip() (hash string, height uint64, found bool, err error)
}

// PersistedTip reports the tip recorded by the store. found is false when the
// backend does not track one or nothing has been saved yet.
func (l *Ledger) PersistedTip() (hash string, height uint64, found bool, err error) {
	ts, ok := l.store.(tipStore)
	if !ok {
		return "", 0, false, nil
	}
	return ts.Tip()
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	l.closeSubscribers()
	return l.store.Close()
}

// ensureInitialized loads or rebuilds the chain exactly once. Concurrent
// first callers share a single attempt; a failed attempt is not cached and
// the next call starts a new one.
func (l *Ledger) ensureInitialized(ctx context.Context) error {
	l.stateMu.Lock()
	if l.state == stateReady {
		l.stateMu.Unlock()
		return nil
	}
	if l.state == stateInitializing {
		a := l.attempt
		l.stateMu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a := &initAttempt{done: make(chan struct{})}
	l.attempt = a
	l.state = stateInitializing
	l.stateMu.Unlock()

	err := l.load()

	l.stateMu.Lock()
	a.err = err
	if err != nil {
		l.state = stateFailed
		l.log.Error("failed to initialize ledger", "location", l.store.Location(), "err", err)
	} else {
		l.state = stateReady
	}
	close(a.done)
	l.stateMu.Unlock()
	return err
}

// load adopts the persisted chain if it verifies, and otherwise replaces it
// with a fresh genesis block.
func (l *Ledger) load() error {
	chain, err := l.store.Load()
	switch {
	case err == nil:
		v := l.verifier.Verify(chain)
		if v.IsValid {
			l.setChain(chain)
			l.log.Info("ledger loaded", "location", l.store.Location(), "blocks", len(chain))
			return nil
		}
		l.log.Warn("stored ledger failed verification, rebuilding genesis block",
			"location", l.store.Location(), "invalidIndex", *v.InvalidIndex, "reason", v.Reason)
	case errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrCorruptState):
		l.log.Warn("stored ledger is corrupt, rebuilding genesis block", "location", l.store.Location(), "err", err)
	default:
		l.log.Warn("unable to read ledger, creating new one", "location", l.store.Location(), "err", err)
	}

	genesis, err := l.genesis()
	if err != nil {
		return err
	}
	chain = []Block{genesis}
	if err := l.store.Save(chain); err != nil {
		return err
	}
	l.setChain(chain)
	l.log.Info("genesis block created", "location", l.store.Location(), "hash", genesis.Hash)
	return nil
}

func (l *Ledger) mineGenesis() (Block, error) {
	return l.miner.Mine(Block{
		Index:        0,
		Timestamp:    params.GenesisTimestamp,
		Data:         map[string]any{"message": params.GenesisMessage},
		PreviousHash: params.ZeroHash,
	})
}

func (l *Ledger) setChain(chain []Block) {
	l.mu.Lock()
	l.chain = chain
	l.mu.Unlock()
}

// snapshot returns the current chain slice. Blocks are never modified in
// place, so callers may read it without holding the lock.
func (l *Ledger) snapshot() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain
}

func (l *Ledger) acquireWrite(ctx context.Context) error {
	select {
	case l.writeSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Ledger) releaseWrite() { <-l.writeSem }

// AddBlock mines data into a new block on top of the current tail, persists
// the whole chain and returns a copy of the new block. data must be a JSON
// object or array; it is deep-copied before mining.
//
// The chain is written to the store before the in-memory tail moves, so a
// storage error leaves both at the previous tail. ctx bounds the wait for
// initialization and for earlier writers; mining itself is not interrupted.
func (l *Ledger) AddBlock(ctx context.Context, data any) (Block, error) {
	payload, err := structuredPayload(data)
	if err != nil {
		return Block{}, err
	}

	if err := l.ensureInitialized(ctx); err != nil {
		return Block{}, err
	}
	if err := l.acquireWrite(ctx); err != nil {
		return Block{}, err
	}
	defer l.releaseWrite()

	current := l.snapshot()
	tail := current[len(current)-1]

	mined, err := l.miner.Mine(Block{
		Index:        tail.Index + 1,
		Timestamp:    formatTimestamp(l.now()),
		Data:         payload,
		PreviousHash: tail.Hash,
	})
	if err != nil {
		return Block{}, err
	}

	next := make([]Block, len(current), len(current)+1)
	copy(next, current)
	next = append(next, mined)

	if err := l.store.Save(next); err != nil {
		return Block{}, err
	}
	l.setChain(next)

	l.log.Info("block added", "index", mined.Index, "hash", mined.Hash, "nonce", mined.Nonce)
	l.publish(Event{Type: EventNewBlock, Block: mined.clone()})
	return mined.clone(), nil
}

func structuredPayload(data any) (any, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: block data must be a non-null object", ErrInvalidInput)
	}
	payload, err := normalize(data)
	if err != nil {
		return nil, err
	}
	switch payload.(type) {
	case map[string]any, []any:
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: block data must be a JSON object or array, got %T", ErrInvalidInput, data)
	}
}

// GetChain returns a deep copy of every block.
func (l *Ledger) GetChain(ctx context.Context) ([]Block, error) {
	if err := l.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return cloneChain(l.snapshot()), nil
}

// VerifyChain verifies the live chain.
func (l *Ledger) VerifyChain(ctx context.Context) (Verification, error) {
	if err := l.ensureInitialized(ctx); err != nil {
		return Verification{}, err
	}
	return l.verifier.Verify(l.snapshot()), nil
}

// VerifyCandidate verifies chain under this ledger's rules without touching
// the stored chain.
func (l *Ledger) VerifyCandidate(chain []Block) Verification {
	return l.verifier.Verify(chain)
}

// ResetChain discards all history and persists a chain holding only the
// genesis block. There is no way to recover the previous chain afterwards.
func (l *Ledger) ResetChain(ctx context.Context) ([]Block, error) {
	if err := l.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if err := l.acquireWrite(ctx); err != nil {
		return nil, err
	}
	defer l.releaseWrite()

	genesis, err := l.genesis()
	if err != nil {
		return nil, err
	}
	chain := []Block{genesis}
	if err := l.store.Save(chain); err != nil {
		return nil, err
	}
	l.setChain(chain)

	l.log.Warn("ledger reset to genesis", "location", l.store.Location())
	l.publish(Event{Type: EventReset, Block: genesis.clone()})
	return cloneChain(chain), nil
}

// Summary reports the number of non-genesis blocks, the difficulty and the
// newest non-genesis block, if any.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	if err := l.ensureInitialized(ctx); err != nil {
		return Summary{}, err
	}
	chain := l.snapshot()

	s := Summary{
		TotalTransactions: max(len(chain)-1, 0),
		Difficulty:        l.Difficulty(),
	}
	if s.TotalTransactions > 0 {
		last := chain[len(chain)-1].clone()
		s.LastTransaction = &last
	}
	return s, nil
}
