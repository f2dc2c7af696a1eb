package ledger

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/raktchain/raktchain/protocol/params"
)

// MinerStats holds mining statistics
type MinerStats struct {
	HashCount    uint64        `json:"hashCount"`
	BlocksMined  uint64        `json:"blocksMined"`
	LastDuration time.Duration `json:"lastDurationNs"`
	LastMinedAt  time.Time     `json:"lastMinedAt"`
}

// Miner searches for a nonce whose block hash starts with Difficulty zero
// hex characters.
type Miner struct {
	difficulty int
	prefix     string
	hasher     Hasher
	yieldEvery uint64
	yield      func()

	hashCount    atomic.Uint64
	blocksMined  atomic.Uint64
	lastDuration atomic.Int64
	lastMinedAt  atomic.Int64
}

// NewMiner creates a miner. Difficulty below 1 is raised to 1; a nil hasher
// selects SHA256.
func NewMiner(difficulty int, hasher Hasher) (*Miner, error) {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > params.MaxDifficulty {
		return nil, fmt.Errorf("%w: difficulty %d exceeds %d", ErrInvalidInput, difficulty, params.MaxDifficulty)
	}
	if hasher == nil {
		hasher = SHA256
	}
	return &Miner{
		difficulty: difficulty,
		prefix:     strings.Repeat("0", difficulty),
		hasher:     hasher,
		yieldEvery: params.YieldInterval,
		yield:      runtime.Gosched,
	}, nil
}

// Difficulty returns the required number of leading zero characters.
func (m *Miner) Difficulty() int { return m.difficulty }

// Hash recomputes the hash of b from its fields.
func (m *Miner) Hash(b Block) (string, error) {
	return ComputeHash(m.hasher, b.Index, b.Timestamp, b.Data, b.PreviousHash, b.Nonce)
}

// MeetsDifficulty reports whether hash carries the required zero prefix.
func (m *Miner) MeetsDifficulty(hash string) bool {
	return strings.HasPrefix(hash, m.prefix)
}

// Mine returns b with the smallest nonce >= b.Nonce whose hash meets the
// difficulty, and that hash. There is no timeout: expected work is
// 16^difficulty attempts. The loop yields the processor every few thousand
// attempts so other goroutines keep running on a busy GOMAXPROCS=1 host.
func (m *Miner) Mine(b Block) (Block, error) {
	preimage, err := hashPreimage(b.Index, b.Timestamp, b.Data, b.PreviousHash)
	if err != nil {
		return Block{}, err
	}

	start := time.Now()
	buf := make([]byte, len(preimage), len(preimage)+20)
	copy(buf, preimage)
	var digest [64]byte

	var attempts uint64
	nonce := b.Nonce
	for {
		buf = strconv.AppendUint(buf[:len(preimage)], nonce, 10)
		sum := m.hasher(buf)
		hex.Encode(digest[:], sum[:])
		attempts++

		if hasZeroPrefix(digest[:], m.difficulty) {
			b.Nonce = nonce
			b.Hash = string(digest[:])
			break
		}

		nonce++
		if attempts%m.yieldEvery == 0 {
			m.hashCount.Add(attempts)
			attempts = 0
			m.yield()
		}
	}

	elapsed := time.Since(start)
	m.hashCount.Add(attempts)
	m.blocksMined.Add(1)
	m.lastDuration.Store(int64(elapsed))
	m.lastMinedAt.Store(time.Now().UnixNano())
	return b, nil
}

// Stats returns current mining statistics
func (m *Miner) Stats() MinerStats {
	stats := MinerStats{
		HashCount:    m.hashCount.Load(),
		BlocksMined:  m.blocksMined.Load(),
		LastDuration: time.Duration(m.lastDuration.Load()),
	}
	if ns := m.lastMinedAt.Load(); ns != 0 {
		stats.LastMinedAt = time.Unix(0, ns).UTC()
	}
	return stats
}

func hasZeroPrefix(digest []byte, n int) bool {
	for i := 0; i < n; i++ {
		if digest[i] != '0' {
			return false
		}
	}
	return true
}
