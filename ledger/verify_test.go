package ledger

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/raktchain/raktchain/protocol/params"
)

// buildChain mines a genesis block and n donation blocks with m.
func buildChain(t *testing.T, m *Miner, n int) []Block {
	t.Helper()

	chain := []Block{mustMine(t, m, Block{
		Index:        0,
		Timestamp:    params.GenesisTimestamp,
		Data:         map[string]any{"message": params.GenesisMessage},
		PreviousHash: params.ZeroHash,
	})}
	for i := 1; i <= n; i++ {
		data, err := normalize(donation("Alice", "Bob", i))
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		chain = append(chain, mustMine(t, m, Block{
			Index:        uint64(i),
			Timestamp:    "2025-03-01T12:00:00.000Z",
			Data:         data,
			PreviousHash: chain[i-1].Hash,
		}))
	}
	return chain
}

func assertInvalid(t *testing.T, v Verification, index int, reason string) {
	t.Helper()

	if v.IsValid {
		t.Fatalf("expected invalid chain, got valid")
	}
	if v.InvalidIndex == nil || *v.InvalidIndex != index {
		t.Fatalf("invalidIndex = %v, want %d", v.InvalidIndex, index)
	}
	if v.Reason != reason {
		t.Fatalf("reason = %q, want %q", v.Reason, reason)
	}
}

func TestVerifier_ValidChain(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 3)

	v := NewVerifier(m).Verify(chain)
	if !v.IsValid || v.InvalidIndex != nil || v.Reason != "" {
		t.Fatalf("expected valid chain, got %+v", v)
	}
}

func TestVerifier_EmptyChain(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	assertInvalid(t, NewVerifier(m).Verify(nil), 0, ReasonEmpty)
	assertInvalid(t, NewVerifier(m).Verify([]Block{}), 0, ReasonEmpty)
}

func TestVerifier_DetectsTamperedPayload(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 3)
	chain[2].Data.(map[string]any)["units"] = 50

	assertInvalid(t, NewVerifier(m).Verify(chain), 2, ReasonHashMismatch)
}

func TestVerifier_DetectsRecomputedHashBelowDifficulty(t *testing.T) {
	m, _ := NewMiner(2, SHA256)
	chain := buildChain(t, m, 2)

	// Re-hash block 1 with a nonce that does not satisfy the difficulty.
	b := chain[1]
	for nonce := uint64(0); ; nonce++ {
		b.Nonce = nonce
		h, err := m.Hash(b)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if !strings.HasPrefix(h, "00") {
			b.Hash = h
			break
		}
	}
	chain[1] = b

	assertInvalid(t, NewVerifier(m).Verify(chain), 1, ReasonDifficulty)
}

func TestVerifier_DetectsBadGenesisPreviousHash(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	genesis := mustMine(t, m, Block{
		Index:        0,
		Timestamp:    params.GenesisTimestamp,
		Data:         map[string]any{"message": "other"},
		PreviousHash: strings.Repeat("f", 64),
	})

	assertInvalid(t, NewVerifier(m).Verify([]Block{genesis}), 0, ReasonGenesisPreviousHash)
}

func TestVerifier_DetectsBrokenLink(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 2)

	// A self-consistent block that points at the wrong predecessor.
	chain[2] = mustMine(t, m, Block{
		Index:        2,
		Timestamp:    chain[2].Timestamp,
		Data:         chain[2].Data,
		PreviousHash: chain[0].Hash,
	})

	assertInvalid(t, NewVerifier(m).Verify(chain), 2, ReasonPreviousHash)
}

func TestVerifier_DetectsIndexGap(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 1)

	chain = append(chain, mustMine(t, m, Block{
		Index:        5,
		Timestamp:    "2025-03-01T12:00:00.000Z",
		Data:         []any{"late"},
		PreviousHash: chain[1].Hash,
	}))

	assertInvalid(t, NewVerifier(m).Verify(chain), 2, ReasonIndex)
}

func TestVerifier_FalsyPayloadHashesAsEmptyObject(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 1)

	// Mined over {}, then stored with a falsy payload by some other writer.
	block := mustMine(t, m, Block{
		Index:        2,
		Timestamp:    "2025-03-01T12:00:00.000Z",
		Data:         map[string]any{},
		PreviousHash: chain[1].Hash,
	})

	for _, data := range []any{nil, false, "", json.Number("0"), 0.0} {
		candidate := append(cloneChain(chain), block)
		candidate[2].Data = data
		if v := NewVerifier(m).Verify(candidate); !v.IsValid {
			t.Fatalf("data %#v: expected valid chain, got %+v", data, v)
		}
	}

	// Truthy scalars are hashed as themselves.
	candidate := append(cloneChain(chain), block)
	candidate[2].Data = json.Number("1")
	assertInvalid(t, NewVerifier(m).Verify(candidate), 2, ReasonHashMismatch)
}

func TestVerifier_StricterDifficultyRejectsChain(t *testing.T) {
	easy, _ := NewMiner(1, SHA256)
	chain := buildChain(t, easy, 1)

	strict, _ := NewMiner(4, SHA256)
	v := NewVerifier(strict).Verify(chain)
	if v.IsValid {
		// Possible only if every hash happened to carry four zeros.
		for _, b := range chain {
			if !strings.HasPrefix(b.Hash, "0000") {
				t.Fatalf("chain with hash %s passed difficulty 4", b.Hash)
			}
		}
		return
	}
	if v.Reason != ReasonDifficulty {
		t.Fatalf("reason = %q, want %q", v.Reason, ReasonDifficulty)
	}
}

func TestVerifier_DoesNotModifyInput(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 2)
	chain[1].Data = map[string]any{"units": 2, "tags": []string{"a"}}

	before := cloneChain(chain)
	before[1].Data = map[string]any{"units": 2, "tags": []string{"a"}}

	NewVerifier(m).Verify(chain)

	if !reflect.DeepEqual(chain, before) {
		t.Fatalf("Verify modified its input")
	}
}

func TestVerifier_AcceptsEquivalentPayloadTypes(t *testing.T) {
	m, _ := NewMiner(1, SHA256)
	chain := buildChain(t, m, 1)

	// Same JSON value as the mined payload, expressed with Go types.
	chain[1].Data = donation("Alice", "Bob", 1)
	if v := NewVerifier(m).Verify(chain); !v.IsValid {
		t.Fatalf("expected valid chain, got %+v", v)
	}

	// Round-trip through the persisted format.
	raw, err := EncodeChain(chain)
	if err != nil {
		t.Fatalf("EncodeChain: %v", err)
	}
	decoded, err := DecodeChain(raw)
	if err != nil {
		t.Fatalf("DecodeChain: %v", err)
	}
	if v := NewVerifier(m).Verify(decoded); !v.IsValid {
		t.Fatalf("decoded chain invalid: %+v", v)
	}
	if _, ok := decoded[1].Data.(map[string]any)["units"].(json.Number); !ok {
		t.Fatalf("expected units decoded as json.Number, got %T", decoded[1].Data.(map[string]any)["units"])
	}
}
