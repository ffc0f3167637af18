package store

import (
	"context"
	"strings"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// UserStore holds the identity records the access layer validates against.
// Authentication happens upstream; this store only answers "does this user
// exist" and backs user pickers.
type UserStore struct {
	s *Store
}

// Add upserts a user record. Used at session bootstrap when an
// authenticated identity is first seen.
func (u *UserStore) Add(ctx context.Context, user User) error {
	if user.Key == "" {
		return &StoreError{Code: ErrValidation, Message: "The user \"key\" is required"}
	}
	data, err := encodeUser(&user)
	if err != nil {
		return err
	}
	return u.s.kv.Put(ctx, keys.User(user.Key), data)
}

// Read returns a user record, or ErrNotFound.
func (u *UserStore) Read(ctx context.Context, key string) (*User, error) {
	data, err := u.s.kv.Get(ctx, keys.User(key))
	if err == kv.ErrKeyNotFound {
		return nil, &StoreError{Code: ErrNotFound, Message: "Not found", Key: key}
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

// ReadMany resolves a set of user keys, reporting which were missing
// instead of failing on the first absent record.
func (u *UserStore) ReadMany(ctx context.Context, ids []string) ([]*User, []string, error) {
	rowKeys := make([][]byte, len(ids))
	for i, id := range ids {
		rowKeys[i] = keys.User(id)
	}
	rows, err := u.s.kv.GetMany(ctx, rowKeys)
	if err != nil {
		return nil, nil, err
	}

	var users []*User
	var missing []string
	for i, row := range rows {
		if row == nil {
			missing = append(missing, ids[i])
			continue
		}
		user, err := decodeUser(row)
		if err != nil {
			return nil, nil, err
		}
		users = append(users, user)
	}
	return users, missing, nil
}

// UserListOptions parameterizes a user listing.
type UserListOptions struct {
	// Query filters by case-insensitive substring match on name or email.
	Query string

	Limit  int
	Cursor string
}

// List pages user records, optionally filtered by a name/email query. The
// requesting user is excluded from the results; user pickers never offer
// sharing with yourself.
func (u *UserStore) List(ctx context.Context, user User, opts UserListOptions) (*ListResult[*User], error) {
	start := time.Now()
	result, err := u.list(ctx, user, opts)
	u.s.observe("users", "list", start, err)
	return result, err
}

func (u *UserStore) list(ctx context.Context, user User, opts UserListOptions) (*ListResult[*User], error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	state := cursor.ListState{Query: opts.Query, Limit: cursor.ClampLimit(opts.Limit)}
	if opts.Cursor != "" {
		decoded, err := u.s.cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, err
		}
		state = decoded
		state.Limit = cursor.ClampLimit(state.Limit)
	}

	it, err := u.s.kv.Iterator(kv.IterOptions{Prefix: keys.UserPrefix()})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if state.LastKey != "" {
		it.Seek([]byte(state.LastKey))
	}

	needle := strings.ToLower(state.Query)
	items := make([]*User, 0, state.Limit)
	lastKey := state.LastKey
	for len(items) < state.Limit && it.Next() {
		value, err := it.Value()
		if err != nil {
			return nil, err
		}
		candidate, err := decodeUser(value)
		if err != nil {
			return nil, err
		}
		lastKey = string(it.Key())

		if candidate.Deleted || candidate.Key == user.Key {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(candidate.Name), needle) &&
			!strings.Contains(strings.ToLower(candidate.Email), needle) {
			continue
		}
		items = append(items, candidate)
	}

	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*User]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := u.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*User]{Items: items, Cursor: encoded}, nil
}
