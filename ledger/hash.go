package ledger

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Hasher computes the 256-bit digest used for block hashes.
type Hasher func(data []byte) [32]byte

// SHA256 is the default block hasher.
func SHA256(data []byte) [32]byte { return sha256.Sum256(data) }

// SHA3_256 hashes with SHA3-256.
func SHA3_256(data []byte) [32]byte { return sha3.Sum256(data) }

// ParseHasher maps a configuration name to a Hasher.
func ParseHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "sha3-256", "sha3":
		return SHA3_256, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidInput, name)
	}
}
