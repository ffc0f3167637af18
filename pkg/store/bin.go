package store

import (
	"context"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// BinStore is the deletion log: one marker row per soft-deleted file,
// keyed by kind and original key. Markers are written atomically with the
// deletion itself; the store only reads and pages them.
type BinStore struct {
	s *Store
}

// Add writes a deletion marker. FileStore.Delete writes its marker inside
// the deletion batch; this standalone path serves maintenance tooling.
func (b *BinStore) Add(ctx context.Context, kind, key string, info DeletedInfo) error {
	data, err := encodeBinEntry(&BinEntry{Key: key, Kind: kind, DeletedInfo: info})
	if err != nil {
		return err
	}
	return b.s.kv.Put(ctx, keys.Bin(kind, key), data)
}

// List pages the user's own deletion log for the given kinds. Only entries
// the user deleted are visible.
func (b *BinStore) List(ctx context.Context, kinds []string, user User, opts ListOptions) (*ListResult[*BinEntry], error) {
	start := time.Now()
	result, err := b.list(ctx, kinds, user, opts)
	b.s.observe("bin", "list", start, err)
	return result, err
}

func (b *BinStore) list(ctx context.Context, kinds []string, user User, opts ListOptions) (*ListResult[*BinEntry], error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, &StoreError{Code: ErrBadRequest, Message: "At least one kind is required"}
	}

	state := cursor.ListState{Limit: cursor.ClampLimit(opts.Limit)}
	if opts.Cursor != "" {
		decoded, err := b.s.cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, err
		}
		state = decoded
		state.Limit = cursor.ClampLimit(state.Limit)
	}

	items := make([]*BinEntry, 0, state.Limit)
	lastKey := state.LastKey
	resuming := state.LastKey != ""

	for _, kind := range kinds {
		if len(items) >= state.Limit {
			break
		}
		prefix := keys.BinKindPrefix(kind)
		if resuming && !hasBytePrefix(state.LastKey, prefix) {
			continue
		}

		it, err := b.s.kv.Iterator(kv.IterOptions{Prefix: prefix, Reverse: true})
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
				entry, err := decodeBinEntry(value)
				if err != nil {
					return err
				}
				lastKey = string(it.Key())
				if entry.DeletedInfo.User != user.Key {
					continue
				}
				items = append(items, entry)
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}

	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*BinEntry]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := b.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*BinEntry]{Items: items, Cursor: encoded}, nil
}
