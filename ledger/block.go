package ledger

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/raktchain/raktchain/protocol/params"
)

// Block is one entry of the ledger. Data holds a normalized JSON value (see
// CanonicalJSON) and is opaque to the ledger beyond hashing.
type Block struct {
	Index        uint64 `json:"index"`
	Timestamp    string `json:"timestamp"`
	Data         any    `json:"data"`
	PreviousHash string `json:"previousHash"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
}

// ComputeHash returns the hex digest of
// index|timestamp|canonical(data)|previousHash|nonce.
func ComputeHash(h Hasher, index uint64, timestamp string, data any, previousHash string, nonce uint64) (string, error) {
	prefix, err := hashPreimage(index, timestamp, data, previousHash)
	if err != nil {
		return "", err
	}
	return hashWithNonce(h, prefix, nonce), nil
}

// hashPreimage serializes every hashed field except the nonce. The miner
// builds it once per block and appends each candidate nonce.
func hashPreimage(index uint64, timestamp string, data any, previousHash string) ([]byte, error) {
	canon, err := CanonicalJSON(data)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 20+len(timestamp)+len(canon)+len(previousHash)+4*len(params.HashDelimiter))
	buf = strconv.AppendUint(buf, index, 10)
	buf = append(buf, params.HashDelimiter...)
	buf = append(buf, timestamp...)
	buf = append(buf, params.HashDelimiter...)
	buf = append(buf, canon...)
	buf = append(buf, params.HashDelimiter...)
	buf = append(buf, previousHash...)
	buf = append(buf, params.HashDelimiter...)
	return buf, nil
}

func hashWithNonce(h Hasher, prefix []byte, nonce uint64) string {
	buf := strconv.AppendUint(prefix[:len(prefix):len(prefix)], nonce, 10)
	sum := h(buf)
	return hex.EncodeToString(sum[:])
}

// clone returns a copy of b whose payload shares nothing with b.
func (b Block) clone() Block {
	b.Data = clonePayload(b.Data)
	return b
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(params.TimestampLayout)
}

func cloneChain(chain []Block) []Block {
	out := make([]Block, len(chain))
	for i := range chain {
		out[i] = chain[i].clone()
	}
	return out
}
