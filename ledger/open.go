package ledger

import (
	"fmt"
	"strings"
)

// Store backends accepted by OpenStore.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// OpenStore opens the named backend at path.
func OpenStore(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidInput, backend)
	}
}
