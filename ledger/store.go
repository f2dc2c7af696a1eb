package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Store persists the whole chain. Save always receives the complete chain and
// replaces whatever was stored before.
type Store interface {
	// Load returns the persisted chain, ErrNotFound when nothing has been
	// stored, ErrCorruptState when content cannot be parsed as a non-empty
	// chain, or ErrStorageIO for read failures.
	Load() ([]Block, error)
	Save(chain []Block) error
	// Location describes where the chain lives, for logs and status output.
	Location() string
	Close() error
}

// EncodeChain renders chain in the persisted format: a pretty-printed JSON
// array of blocks.
func EncodeChain(chain []Block) ([]byte, error) {
	if chain == nil {
		chain = []Block{}
	}
	data, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return data, nil
}

// DecodeChain parses the persisted format. Numbers inside payloads are kept
// as json.Number so hashes recompute exactly. Anything but whitespace after
// the array makes the document corrupt.
func DecodeChain(raw []byte) ([]Block, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var chain []Block
	if err := dec.Decode(&chain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after chain", ErrCorruptState)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: chain is empty", ErrCorruptState)
	}
	return chain, nil
}
