// Package badger implements kv.Store on BadgerDB.
//
// BadgerDB is an embedded LSM-tree key-value store with lexicographically
// ordered keys, which makes it a direct fit for the range-scan heavy access
// patterns of the domain stores (directory-style listings, time-ordered
// history indexes, cursor resumption via seek).
package badger

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/api-client/net-store/pkg/kv"
)

// Store implements kv.Store backed by a BadgerDB database.
//
// Thread Safety:
// BadgerDB transactions provide snapshot isolation internally; Store adds no
// locking of its own. All methods are safe for concurrent use.
//
// Consistency Model:
// Batch maps to a single Badger write transaction, so batched operations are
// atomic. Independent Put/Delete calls are separate transactions. The domain
// layer relies on exactly this split: primary rows plus their permission and
// shared-link rows go through Batch, while history secondary-index rows are
// written independently and treated as rebuildable.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// Config contains configuration for creating a Badger-backed store.
type Config struct {
	// Path is the directory where BadgerDB stores its files. Ignored when
	// InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory runs the database entirely in memory. Used by tests and
	// ephemeral deployments; all data is lost on Close.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32).
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// New opens (or creates) a Badger-backed store at the configured path.
//
// The returned store is immediately ready for use and safe for concurrent
// access from multiple goroutines.
func New(ctx context.Context, config Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	// Metadata rows are small JSON documents; compression overhead is not
	// worth it and WARNING keeps Badger's logger quiet.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.Path, err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key, or kv.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return kv.ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetMany returns one value per requested key, with nil entries for keys
// that do not exist. All reads occur in a single snapshot.
func (s *Store) GetMany(ctx context.Context, keys [][]byte) ([][]byte, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	values := make([][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			values[i], err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Put writes a key/value pair, overwriting any existing value.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a key. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Batch applies all operations in a single Badger write transaction.
func (s *Store) Batch(ctx context.Context, ops []kv.Op) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			switch op.Type {
			case kv.OpPut:
				if err := txn.Set(op.Key, op.Value); err != nil {
					return err
				}
			case kv.OpDelete:
				if err := txn.Delete(op.Key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown batch op type %d", op.Type)
			}
		}
		return nil
	})
}

// Iterator opens an ordered iterator over the bounded range.
//
// The iterator holds a read transaction for its lifetime; callers must Close
// it promptly.
func (s *Store) Iterator(opts kv.IterOptions) (kv.Iterator, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}

	txn := s.db.NewTransaction(false)
	badgerOpts := badger.DefaultIteratorOptions
	badgerOpts.Reverse = opts.Reverse
	badgerOpts.PrefetchValues = true
	it := txn.NewIterator(badgerOpts)

	return &iterator{txn: txn, it: it, opts: opts}, nil
}

// Clear removes every key in the store.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	return s.db.DropAll()
}

// Close closes the underlying BadgerDB database, flushing pending data.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func (s *Store) guard(ctx context.Context) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	return ctx.Err()
}

// iterator adapts a Badger iterator to kv.Iterator, enforcing the GTE/LTE/
// Prefix bounds that Badger itself does not know about.
type iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	opts    kv.IterOptions
	started bool
	pending bool
	closed  bool
}

func (i *iterator) Next() bool {
	if i.closed {
		return false
	}
	switch {
	case !i.started:
		i.started = true
		i.rewind()
	case i.pending:
		// Seek already positioned the iterator on the next entry.
		i.pending = false
	default:
		i.it.Next()
	}
	return i.valid()
}

func (i *iterator) Seek(key []byte) {
	if i.closed {
		return
	}
	i.started = true
	i.pending = false
	i.it.Seek(key)
	if !i.it.Valid() {
		return
	}
	if bytes.Equal(i.it.Item().Key(), key) {
		// Positioned exactly on the boundary row; the next Next call
		// advances past it.
		return
	}
	// The boundary row no longer exists and the engine landed on the entry
	// after it; that entry must still be returned.
	i.pending = true
}

func (i *iterator) Key() []byte {
	return i.it.Item().KeyCopy(nil)
}

func (i *iterator) Value() ([]byte, error) {
	return i.it.Item().ValueCopy(nil)
}

func (i *iterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.it.Close()
	i.txn.Discard()
	return nil
}

// rewind positions the iterator at the first in-bounds entry.
func (i *iterator) rewind() {
	if i.opts.Reverse {
		switch {
		case i.opts.LTE != nil:
			i.it.Seek(i.opts.LTE)
		case i.opts.Prefix != nil:
			// Largest possible key under the prefix.
			i.it.Seek(append(append([]byte{}, i.opts.Prefix...), 0xff))
		default:
			i.it.Rewind()
		}
		return
	}

	switch {
	case i.opts.GTE != nil:
		i.it.Seek(i.opts.GTE)
	case i.opts.Prefix != nil:
		i.it.Seek(i.opts.Prefix)
	default:
		i.it.Rewind()
	}
}

// valid reports whether the iterator currently points at an in-bounds entry.
func (i *iterator) valid() bool {
	if !i.it.Valid() {
		return false
	}
	key := i.it.Item().Key()
	if i.opts.Prefix != nil && !bytes.HasPrefix(key, i.opts.Prefix) {
		return false
	}
	if i.opts.GTE != nil && bytes.Compare(key, i.opts.GTE) < 0 {
		return false
	}
	if i.opts.LTE != nil && bytes.Compare(key, i.opts.LTE) > 0 {
		return false
	}
	return true
}
