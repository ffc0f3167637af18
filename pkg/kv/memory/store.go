// Package memory implements kv.Store with an in-memory sorted key space.
//
// The implementation favors simplicity over throughput: a sorted key slice
// plus a value map under a single read-write mutex. It exists for unit tests
// and ephemeral single-process deployments; production uses kv/badger.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/api-client/net-store/pkg/kv"
)

// Store is an in-memory, ordered kv.Store.
//
// Thread Safety: all operations are guarded by a single RWMutex. Iterators
// operate on a snapshot of the in-range keys taken at creation time, so
// concurrent writes never invalidate an open iterator.
type Store struct {
	mu     sync.RWMutex
	keys   [][]byte
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the value stored under key, or kv.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kv.ErrStoreClosed
	}

	value, ok := s.data[string(key)]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return append([]byte{}, value...), nil
}

// GetMany returns one value per key, nil for absent keys.
func (s *Store) GetMany(ctx context.Context, keys [][]byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kv.ErrStoreClosed
	}

	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, ok := s.data[string(key)]; ok {
			values[i] = append([]byte{}, value...)
		}
	}
	return values, nil
}

// Put writes a key/value pair, overwriting any existing value.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}

	s.put(key, value)
	return nil
}

// Delete removes a key. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}

	s.del(key)
	return nil
}

// Batch applies all operations under a single lock acquisition, making the
// batch atomic with respect to readers.
func (s *Store) Batch(ctx context.Context, ops []kv.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}

	for _, op := range ops {
		switch op.Type {
		case kv.OpPut:
			s.put(op.Key, op.Value)
		case kv.OpDelete:
			s.del(op.Key)
		}
	}
	return nil
}

// Iterator opens an ordered iterator over a snapshot of the bounded range.
func (s *Store) Iterator(opts kv.IterOptions) (kv.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kv.ErrStoreClosed
	}

	var snapshot [][]byte
	for _, key := range s.keys {
		if inBounds(key, opts) {
			snapshot = append(snapshot, append([]byte{}, key...))
		}
	}
	if opts.Reverse {
		for l, r := 0, len(snapshot)-1; l < r; l, r = l+1, r-1 {
			snapshot[l], snapshot[r] = snapshot[r], snapshot[l]
		}
	}

	return &iterator{store: s, keys: snapshot, pos: -1, reverse: opts.Reverse}, nil
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}

	s.keys = nil
	s.data = make(map[string][]byte)
	return nil
}

// Close marks the store closed. Data is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.keys = nil
	s.data = nil
	return nil
}

// put inserts key into the sorted slice if new. Caller holds the write lock.
func (s *Store) put(key, value []byte) {
	if _, exists := s.data[string(key)]; !exists {
		idx := sort.Search(len(s.keys), func(i int) bool {
			return bytes.Compare(s.keys[i], key) >= 0
		})
		s.keys = append(s.keys, nil)
		copy(s.keys[idx+1:], s.keys[idx:])
		s.keys[idx] = append([]byte{}, key...)
	}
	s.data[string(key)] = append([]byte{}, value...)
}

// del removes key from the sorted slice and map. Caller holds the write lock.
func (s *Store) del(key []byte) {
	if _, exists := s.data[string(key)]; !exists {
		return
	}
	delete(s.data, string(key))
	idx := sort.Search(len(s.keys), func(i int) bool {
		return bytes.Compare(s.keys[i], key) >= 0
	})
	if idx < len(s.keys) && bytes.Equal(s.keys[idx], key) {
		s.keys = append(s.keys[:idx], s.keys[idx+1:]...)
	}
}

func inBounds(key []byte, opts kv.IterOptions) bool {
	if opts.Prefix != nil && !bytes.HasPrefix(key, opts.Prefix) {
		return false
	}
	if opts.GTE != nil && bytes.Compare(key, opts.GTE) < 0 {
		return false
	}
	if opts.LTE != nil && bytes.Compare(key, opts.LTE) > 0 {
		return false
	}
	return true
}

// iterator walks a key snapshot; values are read from the live store at
// access time so a row deleted mid-iteration reads as absent.
type iterator struct {
	store   *Store
	keys    [][]byte
	pos     int
	reverse bool
}

func (i *iterator) Next() bool {
	i.pos++
	return i.pos < len(i.keys)
}

// Seek positions the cursor so the next advance yields the first entry
// strictly past key in iteration order.
func (i *iterator) Seek(key []byte) {
	if i.reverse {
		// Snapshot is sorted descending; find the first entry < key.
		i.pos = sort.Search(len(i.keys), func(n int) bool {
			return bytes.Compare(i.keys[n], key) < 0
		}) - 1
		return
	}
	i.pos = sort.Search(len(i.keys), func(n int) bool {
		return bytes.Compare(i.keys[n], key) > 0
	}) - 1
}

func (i *iterator) Key() []byte {
	return append([]byte{}, i.keys[i.pos]...)
}

func (i *iterator) Value() ([]byte, error) {
	i.store.mu.RLock()
	defer i.store.mu.RUnlock()
	value, ok := i.store.data[string(i.keys[i.pos])]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return append([]byte{}, value...), nil
}

func (i *iterator) Close() error {
	i.keys = nil
	return nil
}
