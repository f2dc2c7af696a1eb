package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the chain in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path. The containing directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Load() ([]Block, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageIO, s.path, err)
	}
	return DecodeChain(raw)
}

func (s *FileStore) Save(chain []Block) error {
	data, err := EncodeChain(chain)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrStorageIO, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorageIO, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %v", ErrStorageIO, s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
