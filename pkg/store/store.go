// Package store defines the PersistentStore external collaborator
// (spec.md §6) the Canceller uses for its CancellationCheckpoint records,
// plus a cometbft-db-backed implementation and an in-memory one for tests.
// Grounded on pkg/kvdb/adapter.go's dbm.DB wrapping and pkg/ledger/store.go's
// KV interface (Get/Set) and key-prefix layout conventions.
package store

import (
	"bytes"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
)

// PersistentStore is a namespaced key-value store: Get/Set/Delete on single
// keys, List for prefix scans. Implementations must make Set durable before
// returning (spec.md: CancellationCheckpoint values are content-addressable
// and idempotent, so at-least-once delivery is safe).
type PersistentStore interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	List(prefix []byte) ([][]byte, error)
}

// CometBFTStore adapts a cometbft-db dbm.DB into PersistentStore.
type CometBFTStore struct {
	db dbm.DB
}

// NewCometBFTStore wraps db.
func NewCometBFTStore(db dbm.DB) *CometBFTStore {
	return &CometBFTStore{db: db}
}

func (s *CometBFTStore) Get(key []byte) ([]byte, bool, error) {
	v, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (s *CometBFTStore) Set(key, value []byte) error {
	return s.db.SetSync(key, value)
}

func (s *CometBFTStore) Delete(key []byte) error {
	return s.db.DeleteSync(key)
}

func (s *CometBFTStore) List(prefix []byte) ([][]byte, error) {
	end := upperBound(prefix)
	it, err := s.db.Iterator(prefix, end)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var keys [][]byte
	for ; it.Valid(); it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		keys = append(keys, k)
	}
	return keys, it.Error()
}

// upperBound returns the smallest key that is strictly greater than every
// key with the given prefix, or nil if prefix is all 0xff bytes (meaning
// "scan to the end").
func upperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// InMemory is a PersistentStore backed by a guarded map, for tests and
// single-process local runs.
type InMemory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string][]byte)}
}

func (s *InMemory) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *InMemory) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[string(key)] = v
	return nil
}

func (s *InMemory) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *InMemory) List(prefix []byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys [][]byte
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, []byte(k))
		}
	}
	return keys, nil
}

var (
	_ PersistentStore = (*CometBFTStore)(nil)
	_ PersistentStore = (*InMemory)(nil)
)
