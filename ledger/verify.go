package ledger

import (
	"encoding/json"

	"github.com/raktchain/raktchain/protocol/params"
)

// Failure reasons reported by Verify.
const (
	ReasonEmpty               = "chain is empty"
	ReasonHashMismatch        = "hash mismatch"
	ReasonDifficulty          = "difficulty requirement not met"
	ReasonGenesisPreviousHash = "invalid genesis previous hash"
	ReasonPreviousHash        = "previous hash mismatch"
	ReasonIndex               = "index mismatch"
)

// Verification is the result of checking a chain. InvalidIndex is nil and
// Reason empty when the chain is valid. Reason is one of the Reason*
// constants; ReasonIndex reports a block whose index is not its position,
// which a hash and link check alone would accept.
type Verification struct {
	IsValid      bool   `json:"isValid"`
	InvalidIndex *int   `json:"invalidIndex"`
	Reason       string `json:"reason,omitempty"`
}

func invalidAt(i int, reason string) Verification {
	return Verification{IsValid: false, InvalidIndex: &i, Reason: reason}
}

// Verifier checks chains against the hashing and difficulty rules of a Miner.
type Verifier struct {
	miner *Miner
}

// NewVerifier returns a verifier enforcing m's difficulty and hasher.
func NewVerifier(m *Miner) *Verifier {
	return &Verifier{miner: m}
}

// Verify walks chain in order and reports the first failing block. It works
// on deep copies of each payload and never modifies chain.
func (v *Verifier) Verify(chain []Block) Verification {
	if len(chain) == 0 {
		return invalidAt(0, ReasonEmpty)
	}

	for i := range chain {
		block := chain[i]
		data, err := normalize(block.Data)
		if err != nil {
			return invalidAt(i, ReasonHashMismatch)
		}
		if isFalsy(data) {
			data = map[string]any{}
		}
		block.Data = data

		expected, err := v.miner.Hash(block)
		if err != nil || block.Hash != expected {
			return invalidAt(i, ReasonHashMismatch)
		}

		if !v.miner.MeetsDifficulty(block.Hash) {
			return invalidAt(i, ReasonDifficulty)
		}

		if i == 0 {
			if block.PreviousHash != params.ZeroHash {
				return invalidAt(i, ReasonGenesisPreviousHash)
			}
		} else if block.PreviousHash != chain[i-1].Hash {
			return invalidAt(i, ReasonPreviousHash)
		}

		if block.Index != uint64(i) {
			return invalidAt(i, ReasonIndex)
		}
	}

	return Verification{IsValid: true}
}

// isFalsy reports null, false, "" and zero. Candidate blocks carrying such a
// payload are hashed as an empty object.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}
