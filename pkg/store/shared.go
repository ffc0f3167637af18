package store

import (
	"context"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// SharedStore maintains the "shared with me" secondary index. One link row
// exists per (kind, target user, file) triple, written when a user
// permission is granted and removed when it is revoked or the file is
// deleted. The rows carry the link record itself; file content is hydrated
// from FileStore at list time.
type SharedStore struct {
	s *Store
}

// SharedListOptions parameterizes a shared-files listing.
type SharedListOptions struct {
	// Parent restricts the listing to links whose file sits under the given
	// shared ancestor. Empty lists only top-level shares.
	Parent string
	Limit  int
	Cursor string
}

// add records a link for a direct user grant. The link remembers the file's
// nearest shared ancestor, if any, so listings can suppress links that are
// already reachable through a shared parent.
func (s *SharedStore) add(ctx context.Context, file *File, targetUser string) error {
	link := &SharedLink{
		ID:   file.Key,
		Kind: file.Kind,
		UID:  targetUser,
	}
	if len(file.Parents) > 0 {
		link.Parent = file.Parents[len(file.Parents)-1]
	}
	data, err := encodeSharedLink(link)
	if err != nil {
		return err
	}
	return s.s.kv.Put(ctx, keys.SharedLink(file.Kind, targetUser, file.Key), data)
}

// remove drops the link row for a revoked grant. Removing an absent link is
// a no-op.
func (s *SharedStore) remove(ctx context.Context, kind, fileKey, targetUser string) error {
	err := s.s.kv.Delete(ctx, keys.SharedLink(kind, targetUser, fileKey))
	if err == kv.ErrKeyNotFound {
		return nil
	}
	return err
}

// DeleteByTarget removes every link row referencing the given file,
// regardless of target user. Full namespace scan; used by reindexing and
// purge paths where the permission list may no longer be trustworthy.
func (s *SharedStore) DeleteByTarget(ctx context.Context, fileKey string) error {
	it, err := s.s.kv.Iterator(kv.IterOptions{Prefix: []byte("s:")})
	if err != nil {
		return err
	}

	var stale [][]byte
	err = func() error {
		defer it.Close()
		for it.Next() {
			value, err := it.Value()
			if err != nil {
				return err
			}
			link, err := decodeSharedLink(value)
			if err != nil {
				return err
			}
			if link.ID == fileKey {
				stale = append(stale, append([]byte{}, it.Key()...))
			}
		}
		return nil
	}()
	if err != nil {
		return err
	}

	ops := make([]kv.Op, 0, len(stale))
	for _, key := range stale {
		ops = append(ops, kv.Op{Type: kv.OpDelete, Key: key})
	}
	if len(ops) == 0 {
		return nil
	}
	return s.s.kv.Batch(ctx, ops)
}

// List pages the files shared with a user for the given kinds.
//
// Each returned file carries hydrated permissions, the user's effective
// capabilities, and lastModified.byMe pinned to false: a shared listing is
// never "by me". Links whose file is gone or deleted
// are skipped, as are links under a shared ancestor unless that ancestor is
// passed as Parent; the tree is explored by listing children, not by
// flattening it here.
func (s *SharedStore) List(ctx context.Context, kinds []string, user User, opts SharedListOptions) (*ListResult[*File], error) {
	start := time.Now()
	result, err := s.list(ctx, kinds, user, opts)
	s.s.observe("shared", "list", start, err)
	return result, err
}

func (s *SharedStore) list(ctx context.Context, kinds []string, user User, opts SharedListOptions) (*ListResult[*File], error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, &StoreError{Code: ErrBadRequest, Message: "At least one kind is required"}
	}

	state := cursor.ListState{
		Limit:  cursor.ClampLimit(opts.Limit),
		Parent: opts.Parent,
	}
	if opts.Cursor != "" {
		decoded, err := s.s.cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, err
		}
		state = decoded
		state.Limit = cursor.ClampLimit(state.Limit)
	}

	items := make([]*File, 0, state.Limit)
	lastKey := state.LastKey
	resuming := state.LastKey != ""

	for _, kind := range kinds {
		if len(items) >= state.Limit {
			break
		}
		prefix := keys.SharedUserPrefix(kind, user.Key)
		if resuming && !hasBytePrefix(state.LastKey, prefix) {
			continue
		}

		it, err := s.s.kv.Iterator(kv.IterOptions{Prefix: prefix, Reverse: true})
		if err != nil {
			return nil, err
		}
		if resuming {
			it.Seek([]byte(state.LastKey))
			resuming = false
		}

		err = func() error {
			defer it.Close()
			for len(items) < state.Limit && it.Next() {
				value, err := it.Value()
				if err != nil {
					return err
				}
				link, err := decodeSharedLink(value)
				if err != nil {
					return err
				}
				lastKey = string(it.Key())

				if state.Parent == "" {
					if link.Parent != "" {
						continue
					}
				} else if link.Parent != state.Parent {
					continue
				}

				file, err := s.s.Files.Get(ctx, link.ID, true)
				if err != nil {
					return err
				}
				if file == nil || file.Deleted {
					continue
				}
				role, err := s.s.Permissions.ReadFileAccess(ctx, file, user.Key, s.s.Files.loader(), nil)
				if err != nil {
					return err
				}
				if role == "" {
					// Stale link; the grant is gone.
					continue
				}
				s.s.Files.decorate(file, role, user)
				// Shared lists are never "by me", even when the
				// recipient made the last change.
				file.LastModified.ByMe = false
				items = append(items, file)
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}

	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*File]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := s.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*File]{Items: items, Cursor: encoded}, nil
}
