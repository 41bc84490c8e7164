package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmcdole/zenread/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketBlobs = []byte("pdf_files")
	bucketState = []byte("state")
)

// StateKey is the key the persisted books+settings snapshot lives under
const StateKey = "zen-reader-storage"

const dbFile = "zenread.db"

// Store owns the bbolt database shared by the blob and state stores.
type Store struct {
	db *bolt.DB

	Blobs *BlobStore
	State *StateStore
}

// Open opens (creating if needed) the database in dir.
// An empty dir selects memory-only mode (no persistence).
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{
			Blobs: &BlobStore{mem: make(map[string][]byte)},
			State: &StateStore{},
		}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlobs, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:    db,
		Blobs: &BlobStore{db: db},
		State: &StateStore{db: db},
	}, nil
}

// Close releases the database file
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BlobStore implements domain.BlobStore.
// Every call is a single bolt transaction, so overlapping writes to the
// same id land in one total order and a reader never sees a partial blob.
type BlobStore struct {
	db *bolt.DB

	mu  sync.RWMutex
	mem map[string][]byte // memory-only mode
}

var _ domain.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	if s.db == nil {
		s.mu.Lock()
		s.mem[id] = buf
		s.mu.Unlock()
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(id), buf)
	})
	if err != nil {
		return domain.StorageError("put blob", err)
	}
	return nil
}

func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		v, ok := s.mem[id]
		if !ok {
			return nil, false, nil
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, true, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Values are only valid for the life of the transaction
		if v := tx.Bucket(bucketBlobs).Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, domain.StorageError("get blob", err)
	}
	return data, data != nil, nil
}

func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.db == nil {
		s.mu.Lock()
		delete(s.mem, id)
		s.mu.Unlock()
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete([]byte(id))
	})
	if err != nil {
		return domain.StorageError("delete blob", err)
	}
	return nil
}

// IDs lists every stored blob id
func (s *BlobStore) IDs() ([]string, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		ids := make([]string, 0, len(s.mem))
		for id := range s.mem {
			ids = append(ids, id)
		}
		return ids, nil
	}

	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, domain.StorageError("list blobs", err)
	}
	return ids, nil
}

// StateStore implements domain.StateStore as a JSON document under StateKey.
type StateStore struct {
	db *bolt.DB

	mu  sync.RWMutex
	mem []byte // memory-only mode
}

var _ domain.StateStore = (*StateStore)(nil)

func (s *StateStore) LoadState() (domain.PersistedState, bool, error) {
	var data []byte

	if s.db == nil {
		s.mu.RLock()
		if s.mem != nil {
			data = append([]byte(nil), s.mem...)
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketState).Get([]byte(StateKey)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			return domain.PersistedState{}, false, domain.StorageError("load state", err)
		}
	}

	if data == nil {
		return domain.PersistedState{}, false, nil
	}

	var ps domain.PersistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return domain.PersistedState{}, false, domain.StorageError("decode state", err)
	}
	return ps, true, nil
}

func (s *StateStore) SaveState(ps domain.PersistedState) error {
	if ps.Books == nil {
		ps.Books = []domain.Book{}
	}
	data, err := json.Marshal(ps)
	if err != nil {
		return domain.StorageError("encode state", err)
	}

	if s.db == nil {
		s.mu.Lock()
		s.mem = data
		s.mu.Unlock()
		return nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(StateKey), data)
	})
	if err != nil {
		return domain.StorageError("save state", err)
	}
	return nil
}
