// Package kv defines the ordered key-value store contract the persistence
// layer is built on.
//
// The interface is deliberately narrow: point reads/writes, batched writes,
// and ordered range iteration. Everything the domain stores do (secondary
// indexes, pagination, soft deletion) is expressed in terms of these
// primitives, so any engine with lexicographically ordered keys can back
// the system. Two implementations ship with the repository:
//   - kv/badger: persistent, BadgerDB-backed (production)
//   - kv/memory: sorted in-memory store (tests, ephemeral deployments)
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
//
// Implementations must return this exact sentinel (possibly wrapped) so
// callers can distinguish "absent" from infrastructure failures with
// errors.Is.
var ErrKeyNotFound = errors.New("kv: key not found")

// ErrStoreClosed is returned by operations issued after Close.
var ErrStoreClosed = errors.New("kv: store closed")

// OpType identifies the kind of a batched operation.
type OpType int

const (
	// OpPut writes a key/value pair.
	OpPut OpType = iota

	// OpDelete removes a key. Deleting an absent key is not an error.
	OpDelete
)

// Op is a single operation in a Batch call.
type Op struct {
	Type  OpType
	Key   []byte
	Value []byte
}

// IterOptions bounds an iteration over the ordered key space.
//
// All bounds are inclusive. A nil bound means unbounded on that side.
// When Reverse is set, iteration starts at the upper bound and proceeds
// toward the lower bound.
type IterOptions struct {
	// GTE is the inclusive lower bound.
	GTE []byte

	// LTE is the inclusive upper bound.
	LTE []byte

	// Prefix restricts iteration to keys with this prefix. May be combined
	// with GTE/LTE; the effective range is the intersection.
	Prefix []byte

	// Reverse iterates from the upper bound toward the lower bound.
	Reverse bool
}

// Iterator walks a key range in lexicographic order.
//
// Usage:
//
//	it, err := store.Iterator(opts)
//	defer it.Close()
//	for it.Next() {
//	    key := it.Key()
//	    val, err := it.Value()
//	    ...
//	}
//
// Key returns a copy valid after the next advance. Iterators hold engine
// resources (a read transaction in the Badger implementation) and must be
// closed.
type Iterator interface {
	// Next advances to the next entry within bounds. The first call
	// positions the iterator at the first entry. Returns false when the
	// range is exhausted.
	Next() bool

	// Seek positions the iterator so that the following Next call yields
	// the first in-bounds entry strictly after key in iteration order
	// (strictly before it, when reversed). This is the pagination
	// primitive: seek to the last returned key, then continue with Next
	// without re-returning the boundary row, whether or not that row
	// still exists.
	Seek(key []byte)

	// Key returns a copy of the current entry's key.
	Key() []byte

	// Value returns a copy of the current entry's value.
	Value() ([]byte, error)

	// Close releases iterator resources. Safe to call multiple times.
	Close() error
}

// Store is an ordered key-value store.
//
// Implementations must be safe for concurrent use. Multi-key consistency is
// limited to what Batch offers: operations in a single Batch call are applied
// atomically; separate calls are independent. The domain layer is designed
// around this (secondary indexes are rebuildable accelerators, not sources of
// truth).
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// GetMany returns one value per key, with nil entries for absent keys.
	// Absence is not an error here, unlike Get.
	GetMany(ctx context.Context, keys [][]byte) ([][]byte, error)

	// Put writes a key/value pair, overwriting any existing value.
	Put(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key []byte) error

	// Batch applies all operations atomically.
	Batch(ctx context.Context, ops []Op) error

	// Iterator opens an ordered iterator over the bounded range.
	Iterator(opts IterOptions) (Iterator, error)

	// Clear removes every key in the store. Intended for tests and
	// destructive maintenance tooling only.
	Clear(ctx context.Context) error

	// Close flushes and releases the store. The store must not be used
	// after Close returns.
	Close() error
}
