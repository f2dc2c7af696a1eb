package ledger

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketLedger = []byte("ledger") // chain -> pretty-printed JSON array
	bucketMeta   = []byte("meta")   // tip, height

	keyChain      = []byte("chain")
	metaKeyTip    = []byte("tip")
	metaKeyHeight = []byte("height")
)

// BoltStore keeps the chain document in a bbolt database. The value under
// ledger/chain is byte-for-byte what FileStore would write, so a chain can
// be exported from one backend and imported into the other.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrStorageIO, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageIO, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketLedger, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create buckets: %v", ErrStorageIO, err)
	}

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Location() string { return s.path }

func (s *BoltStore) Load() ([]Block, error) {
	var chain []Block
	var decodeErr error

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLedger).Get(keyChain)
		if data == nil {
			decodeErr = ErrNotFound
			return nil
		}
		// data is only valid inside the transaction
		chain, decodeErr = DecodeChain(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return chain, nil
}

func (s *BoltStore) Save(chain []Block) error {
	data, err := EncodeChain(chain)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketLedger).Put(keyChain, data); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		if len(chain) == 0 {
			if err := meta.Delete(metaKeyTip); err != nil {
				return err
			}
			return meta.Delete(metaKeyHeight)
		}
		tip := chain[len(chain)-1]
		if err := meta.Put(metaKeyTip, []byte(tip.Hash)); err != nil {
			return err
		}
		height := make([]byte, 8)
		binary.BigEndian.PutUint64(height, tip.Index)
		return meta.Put(metaKeyHeight, height)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return nil
}

// Tip returns the hash and index of the last saved block without decoding
// the chain.
func (s *BoltStore) Tip() (hash string, height uint64, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		tipData := meta.Get(metaKeyTip)
		heightData := meta.Get(metaKeyHeight)
		if tipData == nil {
			return nil
		}
		if len(heightData) != 8 {
			return fmt.Errorf("invalid tip height length: got %d", len(heightData))
		}
		hash = string(tipData)
		height = binary.BigEndian.Uint64(heightData)
		found = true
		return nil
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return hash, height, found, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
