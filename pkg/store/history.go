package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/api-client/net-store/internal/logger"
	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// HistoryStore persists recorded HTTP exchanges.
//
// Every record gets one primary row keyed by creation time, user, and a
// random nonce, plus up to four secondary index rows (space, project,
// request, app) whose values point back at the primary key. Index rows are
// best-effort accelerators: readers always resolve through the primary row
// and skip pointers whose record is gone or soft-deleted.
type HistoryStore struct {
	s       *Store
	indexer Indexer
}

// History list source types. HistoryTypeUser is not an index: it selects
// the plain primary scan, same as leaving the type empty.
const (
	HistoryTypeSpace   = "space"
	HistoryTypeProject = "project"
	HistoryTypeRequest = "request"
	HistoryTypeApp     = "app"
	HistoryTypeUser    = "user"
)

// HistoryListOptions parameterizes a history listing.
type HistoryListOptions struct {
	// Type selects a secondary index: space, project, request, or app.
	// Empty lists the user's own records from the primary rows.
	Type string

	// ID is the index key: the space, project, request, or app identifier.
	ID string

	// Space scopes project and request listings, whose index rows are
	// keyed under the space.
	Space string

	// Query filters records through the full-text matcher.
	Query string

	Limit  int
	Cursor string
}

// Add stores a new HTTP exchange record for the user.
//
// At least one of app, space, or project must be set; a request id
// additionally requires a project. Records attached to a space require
// writer access on it. The caller never picks the key: it is derived from
// the creation time, user, and a random nonce, and returned base64url
// encoded.
func (h *HistoryStore) Add(ctx context.Context, record HttpHistory, user User) (*HttpHistory, error) {
	start := time.Now()
	stored, err := h.add(ctx, record, user)
	h.s.observe("history", "add", start, err)
	return stored, err
}

func (h *HistoryStore) add(ctx context.Context, record HttpHistory, user User) (*HttpHistory, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := guardCtx(ctx); err != nil {
		return nil, err
	}
	if record.App == "" && record.Space == "" && record.Project == "" {
		return nil, &StoreError{Code: ErrBadRequest, Message: "Either the \"app\", \"space\", or \"project\" parameter is required"}
	}
	if record.Request != "" && record.Project == "" {
		return nil, &StoreError{Code: ErrBadRequest, Message: "The \"project\" parameter is required when adding a request history"}
	}
	if record.Project != "" && record.Space == "" {
		return nil, &StoreError{Code: ErrBadRequest, Message: "The \"space\" parameter is required when adding a project history"}
	}
	if record.Space != "" {
		if _, err := h.s.Files.CheckAccess(ctx, RoleWriter, record.Space, user); err != nil {
			return nil, err
		}
	}

	created := time.UnixMilli(nowMillis()).UTC()
	nonce := uuid.NewString()
	rawKey := keys.HistoryData(created, user.Key, nonce)

	record.Key = keys.EncodeHistoryKey(rawKey)
	record.Created = created.UnixMilli()
	record.User = user.Key
	record.Deleted = false

	data, err := encodeHistory(&record)
	if err != nil {
		return nil, err
	}

	ops := []kv.Op{{Type: kv.OpPut, Key: keys.History(rawKey), Value: data}}
	pointer := []byte(rawKey)
	if record.App != "" {
		ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryApp(record.App, user.Key, created, nonce), Value: pointer})
	}
	if record.Space != "" {
		ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistorySpace(record.Space, created, nonce), Value: pointer})
	}
	if record.Project != "" {
		ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryProject(record.Space, record.Project, created, nonce), Value: pointer})
	}
	if record.Request != "" {
		ops = append(ops, kv.Op{Type: kv.OpPut, Key: keys.HistoryRequest(record.Space, record.Request, created, nonce), Value: pointer})
	}
	if err := h.s.kv.Batch(ctx, ops); err != nil {
		return nil, err
	}

	eventTargets := []string{user.Key}
	if record.Space != "" {
		if ids, err := h.s.Files.FileUserIDs(ctx, record.Space); err == nil {
			eventTargets = unionStrings(eventTargets, ids)
		}
	}
	h.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationCreated,
		Data:      &record,
		Kind:      "HttpHistory",
		ID:        record.Key,
	}, Filter{URL: RouteHistory, Users: h.s.eventUsers(eventTargets...)})

	return &record, nil
}

// Read returns a single record by its public key.
//
// A record in a space is readable by anyone with reader access on the
// space; otherwise only by its creator. Denials, unknown keys, and
// soft-deleted records all read as ErrNotFound so callers cannot probe for
// existence.
func (h *HistoryStore) Read(ctx context.Context, encodedKey string, user User) (*HttpHistory, error) {
	start := time.Now()
	record, err := h.read(ctx, encodedKey, user)
	h.s.observe("history", "read", start, err)
	return record, err
}

func (h *HistoryStore) read(ctx context.Context, encodedKey string, user User) (*HttpHistory, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	record, _, err := h.get(ctx, encodedKey)
	if err != nil {
		return nil, err
	}

	switch {
	case record.Space != "":
		if _, err := h.s.Files.CheckAccess(ctx, RoleReader, record.Space, user); err != nil {
			if IsCode(err, ErrForbidden) {
				return nil, &StoreError{Code: ErrNotFound, Message: "Not found", Key: encodedKey}
			}
			return nil, err
		}
	case record.User != "":
		if record.User != user.Key {
			return nil, &StoreError{Code: ErrNotFound, Message: "Not found", Key: encodedKey}
		}
	default:
		// A record without space or user cannot be authorized at all.
		return nil, &StoreError{Code: ErrInternal, Message: "The history record is missing the user key", Key: encodedKey}
	}
	return record, nil
}

// get loads a record by public key, returning the raw primary key alongside.
// Undecodable keys and soft-deleted records surface as ErrNotFound.
func (h *HistoryStore) get(ctx context.Context, encodedKey string) (*HttpHistory, string, error) {
	rawKey, ok := keys.DecodeHistoryKey(encodedKey)
	if !ok {
		return nil, "", &StoreError{Code: ErrNotFound, Message: "Not found", Key: encodedKey}
	}
	data, err := h.s.kv.Get(ctx, keys.History(rawKey))
	if err == kv.ErrKeyNotFound {
		return nil, "", &StoreError{Code: ErrNotFound, Message: "Not found", Key: encodedKey}
	}
	if err != nil {
		return nil, "", err
	}
	record, err := decodeHistory(data)
	if err != nil {
		return nil, "", err
	}
	if record.Deleted {
		return nil, "", &StoreError{Code: ErrNotFound, Message: "Not found", Key: encodedKey}
	}
	return record, rawKey, nil
}

// Delete soft-deletes a record. Only the creator may delete; space access
// grants no deletion right. Secondary index rows are removed best-effort;
// a failed index delete is logged and left for reindexing, never surfaced.
func (h *HistoryStore) Delete(ctx context.Context, encodedKey string, user User) error {
	start := time.Now()
	err := h.delete(ctx, encodedKey, user)
	h.s.observe("history", "delete", start, err)
	return err
}

func (h *HistoryStore) delete(ctx context.Context, encodedKey string, user User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	record, rawKey, err := h.get(ctx, encodedKey)
	if err != nil {
		return err
	}
	if record.User == "" {
		return &StoreError{Code: ErrInternal, Message: "The history record is missing the user key", Key: encodedKey}
	}
	if record.User != user.Key {
		return &StoreError{Code: ErrForbidden, Message: "You are not authorized to delete this object", Key: encodedKey}
	}

	record.Deleted = true
	data, err := encodeHistory(record)
	if err != nil {
		return err
	}
	if err := h.s.kv.Put(ctx, keys.History(rawKey), data); err != nil {
		return err
	}

	created := time.UnixMilli(record.Created).UTC()
	nonce := historyKeyNonce(rawKey)
	drop := func(key []byte) {
		if err := h.s.kv.Delete(ctx, key); err != nil && err != kv.ErrKeyNotFound {
			logger.Warn("history: failed to remove index row %q: %v", key, err)
		}
	}
	if record.App != "" {
		drop(keys.HistoryApp(record.App, record.User, created, nonce))
	}
	if record.Space != "" {
		drop(keys.HistorySpace(record.Space, created, nonce))
	}
	if record.Project != "" {
		drop(keys.HistoryProject(record.Space, record.Project, created, nonce))
	}
	if record.Request != "" {
		drop(keys.HistoryRequest(record.Space, record.Request, created, nonce))
	}

	h.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationDeleted,
		Kind:      "HttpHistory",
		ID:        encodedKey,
	}, Filter{URL: RouteHistory, Users: h.s.eventUsers(record.User)})
	return nil
}

// List pages history records newest-first.
//
// Three modes: a typed index listing (space, project, request, app), a
// full-text query over the selected scope, or, with no type (or type
// "user"), the user's own records from the primary rows. Space-scoped types require reader
// access on the space; the app index is keyed per user and needs no check.
func (h *HistoryStore) List(ctx context.Context, user User, opts HistoryListOptions) (*ListResult[*HttpHistory], error) {
	start := time.Now()
	result, err := h.list(ctx, user, opts)
	h.s.observe("history", "list", start, err)
	return result, err
}

func (h *HistoryStore) list(ctx context.Context, user User, opts HistoryListOptions) (*ListResult[*HttpHistory], error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	state := cursor.ListState{
		Type:  opts.Type,
		ID:    opts.ID,
		Space: opts.Space,
		Query: opts.Query,
		User:  user.Key,
		Limit: cursor.ClampLimit(opts.Limit),
	}
	if opts.Cursor != "" {
		decoded, err := h.s.cursor.Decode(opts.Cursor)
		if err != nil {
			return nil, err
		}
		if decoded.User != user.Key {
			return nil, &StoreError{Code: ErrBadRequest, Message: "Invalid page cursor"}
		}
		state = decoded
		state.Limit = cursor.ClampLimit(state.Limit)
	}

	prefix, err := h.listPrefix(ctx, state, user)
	if err != nil {
		return nil, err
	}

	it, err := h.s.kv.Iterator(kv.IterOptions{Prefix: prefix, Reverse: true})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if state.LastKey != "" {
		it.Seek([]byte(state.LastKey))
	}

	primary := state.Type == "" || state.Type == HistoryTypeUser
	items := make([]*HttpHistory, 0, state.Limit)
	lastKey := state.LastKey
	for len(items) < state.Limit && it.Next() {
		value, err := it.Value()
		if err != nil {
			return nil, err
		}
		lastKey = string(it.Key())

		var record *HttpHistory
		var rawKey string
		if primary {
			rawKey = string(it.Key()[len("h:"):])
			owner, ok := keys.HistoryKeyUser(rawKey)
			if !ok || owner != user.Key {
				continue
			}
			record, err = decodeHistory(value)
			if err != nil {
				return nil, err
			}
		} else {
			rawKey = string(value)
			data, err := h.s.kv.Get(ctx, keys.History(rawKey))
			if err == kv.ErrKeyNotFound {
				// Dangling pointer; the primary row is gone.
				continue
			}
			if err != nil {
				return nil, err
			}
			record, err = decodeHistory(data)
			if err != nil {
				return nil, err
			}
		}

		if record.Deleted {
			continue
		}
		if state.Query != "" && !h.indexer.Matches(record, state.Query) {
			continue
		}
		record.Key = keys.EncodeHistoryKey(rawKey)
		items = append(items, record)
	}

	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*HttpHistory]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := h.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*HttpHistory]{Items: items, Cursor: encoded}, nil
}

// listPrefix validates the listing scope and returns the scan prefix,
// enforcing space access where the scope requires it.
func (h *HistoryStore) listPrefix(ctx context.Context, state cursor.ListState, user User) ([]byte, error) {
	if state.Type == "" || state.Type == HistoryTypeUser {
		return keys.HistoryUserPrefix(), nil
	}
	if state.ID == "" {
		return nil, &StoreError{Code: ErrBadRequest, Message: "The \"id\" parameter is required when listing by type"}
	}

	switch state.Type {
	case HistoryTypeSpace:
		if _, err := h.s.Files.CheckAccess(ctx, RoleReader, state.ID, user); err != nil {
			return nil, err
		}
		return keys.HistorySpacePrefix(state.ID), nil
	case HistoryTypeProject:
		if state.Space == "" {
			return nil, &StoreError{Code: ErrBadRequest, Message: "The \"space\" parameter is required when listing a project history"}
		}
		if _, err := h.s.Files.CheckAccess(ctx, RoleReader, state.Space, user); err != nil {
			return nil, err
		}
		return keys.HistoryProjectPrefix(state.Space, state.ID), nil
	case HistoryTypeRequest:
		if state.Space == "" {
			return nil, &StoreError{Code: ErrBadRequest, Message: "The \"space\" parameter is required when listing a request history"}
		}
		if _, err := h.s.Files.CheckAccess(ctx, RoleReader, state.Space, user); err != nil {
			return nil, err
		}
		return keys.HistoryRequestPrefix(state.Space, state.ID), nil
	case HistoryTypeApp:
		return keys.HistoryAppPrefix(state.ID, user.Key), nil
	default:
		return nil, &StoreError{Code: ErrBadRequest, Message: "Unknown history type: " + state.Type}
	}
}

// historyKeyNonce extracts the nonce segment of a raw primary history key.
func historyKeyNonce(rawKey string) string {
	idx := strings.LastIndex(rawKey, keys.Sep)
	if idx < 0 {
		return ""
	}
	return rawKey[idx+1:]
}
