// Package store implements the multi-tenant persistence layer: hierarchical
// file objects with inheritable permissions, denormalized sharing links,
// HTTP-history records with four secondary indexes, and encrypted cursor
// pagination, all expressed over an ordered key-value store (pkg/kv).
//
// Consistency Model:
// The key-value engine offers atomicity only within a single batch. File,
// permission, and shared-link rows that must stay aligned are written in one
// batch; history secondary-index rows are deliberately written independently
// and treated as best-effort, rebuildable accelerators (pkg/reindex rebuilds
// them offline). Readers defend against dangling index rows by skipping
// pointers whose primary record is missing or soft-deleted.
package store

import (
	"context"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/metrics"
	"github.com/api-client/net-store/pkg/store/cursor"
)

// Store aggregates the domain sub-stores over one ordered key-value store.
//
// Thread Safety: the aggregate is immutable after New; concurrency control is
// delegated to the key-value engine. Multi-step operations are not serialized
// against each other beyond what single batches guarantee.
type Store struct {
	kv      kv.Store
	cursor  cursorCodec
	sink    EventSink
	metrics *metrics.StoreMetrics

	// singleUser broadcasts file events to every subscriber instead of
	// scoping them to affected users. Used by default/single-user
	// deployments where authentication is a formality.
	singleUser bool

	Files       *FileStore
	Permissions *PermissionStore
	Shared      *SharedStore
	History     *HistoryStore
	Projects    *ProjectStore
	Bin         *BinStore
	Revisions   *RevisionsStore
	Users       *UserStore
}

// Options configures a Store.
type Options struct {
	// Secret is the server secret the pagination cursor key is derived
	// from. Required.
	Secret string

	// Sink receives store events. Defaults to NullSink.
	Sink EventSink

	// Metrics records operation metrics. Nil disables collection.
	Metrics *metrics.StoreMetrics

	// SingleUser broadcasts events to all subscribers (default-user
	// deployments).
	SingleUser bool

	// HistoryIndexer overrides the full-text matcher used by the history
	// query path. Defaults to the built-in substring tokenizer.
	HistoryIndexer Indexer
}

// New creates the store aggregate on top of an opened key-value store.
//
// The caller retains ownership of the kv store until Close is called on the
// aggregate, which closes it.
func New(kvStore kv.Store, opts Options) (*Store, error) {
	codec, err := cursor.NewCodec(opts.Secret)
	if err != nil {
		return nil, err
	}

	sink := opts.Sink
	if sink == nil {
		sink = NullSink{}
	}

	s := &Store{
		kv:         kvStore,
		cursor:     cursorCodec{codec: codec},
		sink:       sink,
		metrics:    opts.Metrics,
		singleUser: opts.SingleUser,
	}

	indexer := opts.HistoryIndexer
	if indexer == nil {
		indexer = defaultIndexer{}
	}

	s.Permissions = &PermissionStore{s: s}
	s.Files = &FileStore{s: s}
	s.Shared = &SharedStore{s: s}
	s.History = &HistoryStore{s: s, indexer: indexer}
	s.Projects = &ProjectStore{s: s}
	s.Bin = &BinStore{s: s}
	s.Revisions = &RevisionsStore{s: s}
	s.Users = &UserStore{s: s}

	return s, nil
}

// KV exposes the underlying key-value store for maintenance tooling
// (reindex, backup). Domain callers use the sub-stores.
func (s *Store) KV() kv.Store {
	return s.kv
}

// Close closes the underlying key-value store.
func (s *Store) Close() error {
	return s.kv.Close()
}

// observe records one completed operation on the optional metrics collector.
func (s *Store) observe(storeName, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	kind := ""
	if err != nil {
		switch CodeOf(err) {
		case ErrNotFound:
			kind = "not_found"
		case ErrForbidden:
			kind = "forbidden"
		case ErrUnauthenticated:
			kind = "unauthenticated"
		case ErrConflict:
			kind = "conflict"
		case ErrBadRequest:
			kind = "bad_request"
		case ErrValidation:
			kind = "validation"
		default:
			kind = "internal"
		}
	}
	s.metrics.Observe(storeName, operation, start, kind)
}

// eventUsers scopes an event filter to the given users, or broadcasts in
// single-user mode.
func (s *Store) eventUsers(users ...string) []string {
	if s.singleUser {
		return nil
	}
	return users
}

// requireUser rejects operations issued without an authenticated user.
func requireUser(user User) error {
	if user.Key == "" {
		return &StoreError{Code: ErrUnauthenticated, Message: "Authentication required"}
	}
	return nil
}

// ListOptions parameterizes a paginated listing.
type ListOptions struct {
	// Parent limits a file listing to direct children of this key.
	Parent string

	// Limit is the maximum page size. Zero applies the default.
	Limit int

	// Cursor resumes a previous listing. When set, it overrides Parent
	// and Limit with the values captured on the first page.
	Cursor string
}

// ListResult is one page of a listing plus the cursor resuming after it.
type ListResult[T any] struct {
	// Items is the page content, at most the requested limit.
	Items []T `json:"items"`

	// Cursor resumes the listing after the last item. Once a listing is
	// exhausted, the cursor stabilizes: re-listing with a terminal cursor
	// returns the same cursor again.
	Cursor string `json:"cursor"`
}

// cursorCodec adapts the cursor package to the store error surface: decode
// failures come back as ErrBadRequest instead of the package sentinel.
type cursorCodec struct {
	codec *cursor.Codec
}

func (c cursorCodec) Encode(state cursor.ListState) (string, error) {
	return c.codec.Encode(state)
}

func (c cursorCodec) Decode(encoded string) (cursor.ListState, error) {
	state, err := c.codec.Decode(encoded)
	if err != nil {
		return state, &StoreError{Code: ErrBadRequest, Message: "Invalid page cursor"}
	}
	return state, nil
}

// guardCtx bails out early on cancelled contexts so multi-write operations
// do not start half-way.
func guardCtx(ctx context.Context) error {
	return ctx.Err()
}
