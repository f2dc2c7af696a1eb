package ledger

import "errors"

var (
	// ErrInvalidInput is returned for payloads that are missing, not a JSON
	// object or array, or not encodable, and for out-of-range settings.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageIO wraps read, write and directory failures of a Store.
	ErrStorageIO = errors.New("storage i/o")

	// ErrCorruptState is returned by Store.Load when persisted content cannot
	// be parsed as a chain. The Ledger recovers from it by rebuilding genesis.
	ErrCorruptState = errors.New("corrupt ledger state")

	// ErrNotFound is returned by Store.Load when nothing has been persisted.
	ErrNotFound = errors.New("ledger not found")
)
