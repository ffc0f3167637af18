package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// RevisionsStore persists the reverse patches recorded by tracked file
// patches. Revisions are append-only; rows are keyed by file, creation
// time, and a random nonce so a file's history scans as one range.
type RevisionsStore struct {
	s *Store
}

// add stores a revision. Called by FileStore.ApplyTrackedPatch with the
// reverse patch already computed.
func (r *RevisionsStore) add(ctx context.Context, revision Revision) error {
	created := time.UnixMilli(revision.Created).UTC()
	nonce := uuid.NewString()
	key := keys.Revision(revision.File, created, nonce)
	revision.Key = string(key)

	data, err := encodeRevision(&revision)
	if err != nil {
		return err
	}
	return r.s.kv.Put(ctx, key, data)
}

// List pages a file's revisions newest-first. Requires reader access on the
// file.
func (r *RevisionsStore) List(ctx context.Context, fileKey string, user User, opts ListOptions) (*ListResult[*Revision], error) {
	start := time.Now()
	result, err := r.list(ctx, fileKey, user, opts)
	r.s.observe("revisions", "list", start, err)
	return result, err
}

func (r *RevisionsStore) list(ctx context.Context, fileKey string, user User, opts ListOptions) (*ListResult[*Revision], error) {
	if _, err := r.s.Files.CheckAccess(ctx, RoleReader, fileKey, user); err != nil {
		return nil, err
	}

	state := cursor.ListState{ID: fileKey, Limit: cursor.ClampLimit(opts.Limit)}
	if opts.Cursor != "" {
		decoded, err := r.s.cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, err
		}
		if decoded.ID != fileKey {
			return nil, &StoreError{Code: ErrBadRequest, Message: "Invalid page cursor"}
		}
		state = decoded
		state.Limit = cursor.ClampLimit(state.Limit)
	}

	it, err := r.s.kv.Iterator(kv.IterOptions{Prefix: keys.RevisionPrefix(fileKey), Reverse: true})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if state.LastKey != "" {
		it.Seek([]byte(state.LastKey))
	}

	items := make([]*Revision, 0, state.Limit)
	lastKey := state.LastKey
	for len(items) < state.Limit && it.Next() {
		value, err := it.Value()
		if err != nil {
			return nil, err
		}
		revision, err := decodeRevision(value)
		if err != nil {
			return nil, err
		}
		lastKey = string(it.Key())
		if revision.Deleted {
			continue
		}
		items = append(items, revision)
	}

	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*Revision]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := r.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*Revision]{Items: items, Cursor: encoded}, nil
}
