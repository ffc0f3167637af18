package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/cursor"
	"github.com/api-client/net-store/pkg/store/keys"
)

// FileStore owns file and workspace metadata: the parent chain, capability
// computation, and every access check. All permission mutations flow through
// it so the shared-links index (SharedStore) stays aligned with permission
// state.
//
// File keys are globally unique across kinds; a lookup row (fk:<key> → kind)
// resolves bare keys during access checks and ancestor walks, while primary
// rows stay kind-prefixed for kind-scoped listings.
type FileStore struct {
	s *Store
}

// AddOptions parameterizes file creation.
type AddOptions struct {
	// Parent is the key of the parent file. The creating user needs writer
	// access on it.
	Parent string
}

// AccessOperation is one entry of a patchAccess call.
type AccessOperation struct {
	// Op is "add" or "remove".
	Op string `json:"op"`

	// Type is the permission target kind: user, group, or anyone.
	Type PermissionType `json:"type"`

	// Value carries the grant for add operations.
	Value *PermissionOptions `json:"value,omitempty"`

	// ID is the target user or group key for remove operations.
	ID string `json:"id,omitempty"`
}

// AccessPatchInfo is a patchAccess request with client provenance.
type AccessPatchInfo struct {
	ID         string            `json:"id,omitempty"`
	App        string            `json:"app,omitempty"`
	AppVersion string            `json:"appVersion,omitempty"`
	Patch      []AccessOperation `json:"patch"`
}

// loader adapts Get to the FileLoader contract used by access resolution.
func (f *FileStore) loader() FileLoader {
	return func(ctx context.Context, key string) (*File, error) {
		return f.Get(ctx, key, true)
	}
}

// Get loads a file bypassing access checks. Returns nil (not an error) when
// the key is unknown. Used internally by ancestor walks and index-based
// listings; route handlers go through Read.
func (f *FileStore) Get(ctx context.Context, key string, includePermissions bool) (*File, error) {
	kindBytes, err := f.s.kv.Get(ctx, keys.FileLookup(key))
	if err == kv.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := f.s.kv.Get(ctx, keys.File(string(kindBytes), key))
	if err == kv.ErrKeyNotFound {
		// Dangling lookup row; treat as absent.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file, err := decodeFile(data)
	if err != nil {
		return nil, err
	}
	if includePermissions {
		if err := f.s.Permissions.hydrate(ctx, file); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// CheckAccess resolves the user's effective role on a file and enforces a
// minimum.
//
// Errors:
//   - ErrUnauthenticated when no user is supplied
//   - ErrNotFound when the file is absent, soft-deleted, or the user holds
//     no role at all (absence and denial are indistinguishable on purpose)
//   - ErrForbidden when a role exists but ranks below the minimum
func (f *FileStore) CheckAccess(ctx context.Context, minimum Role, key string, user User) (Role, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	file, err := f.Get(ctx, key, true)
	if err != nil {
		return "", err
	}
	return f.checkAccessFile(ctx, minimum, file, user)
}

// checkAccessFile enforces a minimum role on an already-loaded file.
func (f *FileStore) checkAccessFile(ctx context.Context, minimum Role, file *File, user User) (Role, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	if file == nil || file.Deleted {
		return "", &StoreError{Code: ErrNotFound, Message: "Not found"}
	}

	role, err := f.s.Permissions.ReadFileAccess(ctx, file, user.Key, f.loader(), nil)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", &StoreError{Code: ErrNotFound, Message: "Not found", Key: file.Key}
	}
	if !HasRole(minimum, role) {
		return "", &StoreError{Code: ErrForbidden, Message: "Insufficient permissions to access this resource", Key: file.Key}
	}
	return role, nil
}

// Add creates a file under the given key.
//
// Caller-supplied owner, permissions, and deletion state are discarded: the
// creating user becomes the owner and the permission set starts empty. This
// is the anti-tampering rule: creation input can never smuggle in access
// state. With a parent, the user needs writer access on it and the new file
// inherits the parent's ancestor chain.
func (f *FileStore) Add(ctx context.Context, key string, file File, user User, opts AddOptions) (*File, error) {
	start := time.Now()
	stored, err := f.add(ctx, key, file, user, opts)
	f.s.observe("files", "add", start, err)
	return stored, err
}

func (f *FileStore) add(ctx context.Context, key string, file File, user User, opts AddOptions) (*File, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := guardCtx(ctx); err != nil {
		return nil, err
	}
	if key == "" || file.Kind == "" {
		return nil, &StoreError{Code: ErrValidation, Message: "Both \"key\" and \"kind\" are required"}
	}

	_, err := f.s.kv.Get(ctx, keys.FileLookup(key))
	if err == nil {
		return nil, &StoreError{Code: ErrConflict, Message: "An object with the same key already exists", Key: key}
	}
	if err != kv.ErrKeyNotFound {
		return nil, err
	}

	file.Key = key
	file.Parents = []string{}
	if opts.Parent != "" {
		if _, err := f.CheckAccess(ctx, RoleWriter, opts.Parent, user); err != nil {
			return nil, err
		}
		parent, err := f.Get(ctx, opts.Parent, false)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, &StoreError{Code: ErrNotFound, Message: "Parent not found", Key: opts.Parent}
		}
		file.Parents = append(append([]string{}, parent.Parents...), parent.Key)
	}

	// Anti-tampering reset.
	file.Owner = user.Key
	file.Permissions = nil
	file.PermissionIDs = []string{}
	file.Deleted = false
	file.DeletedInfo = nil
	file.Capabilities = nil
	file.LastModified = ModificationInfo{User: user.Key, Name: user.Name, Time: nowMillis()}

	data, err := encodeFile(&file)
	if err != nil {
		return nil, err
	}
	err = f.s.kv.Batch(ctx, []kv.Op{
		{Type: kv.OpPut, Key: keys.File(file.Kind, key), Value: data},
		{Type: kv.OpPut, Key: keys.FileLookup(key), Value: []byte(file.Kind)},
	})
	if err != nil {
		return nil, err
	}

	f.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationCreated,
		Data:      &file,
		Kind:      file.Kind,
		ID:        key,
	}, Filter{URL: RouteFiles, Users: f.s.eventUsers(user.Key)})

	result := file.Clone()
	caps := CapabilitiesFor(RoleOwner, true)
	result.Capabilities = &caps
	result.LastModified.ByMe = true
	return result, nil
}

// Read returns a file after a reader-level access check, with permissions
// hydrated and per-user transients (capabilities, lastModified.byMe)
// computed. Soft-deleted files read as absent.
func (f *FileStore) Read(ctx context.Context, key string, user User) (*File, error) {
	start := time.Now()
	file, err := f.read(ctx, key, user)
	f.s.observe("files", "read", start, err)
	return file, err
}

func (f *FileStore) read(ctx context.Context, key string, user User) (*File, error) {
	file, err := f.Get(ctx, key, true)
	if err != nil {
		return nil, err
	}
	role, err := f.checkAccessFile(ctx, RoleReader, file, user)
	if err != nil {
		return nil, err
	}

	f.decorate(file, role, user)
	return file, nil
}

// decorate fills the per-user transient fields.
func (f *FileStore) decorate(file *File, role Role, user User) {
	caps := CapabilitiesFor(role, file.Owner == user.Key)
	file.Capabilities = &caps
	file.LastModified.ByMe = file.LastModified.User == user.Key
}

// ApplyTrackedPatch applies a JSON-Patch to a file, persists the reverse
// patch as a revision, and reports both directions.
//
// Operations touching protected fields (permissions, parents, key, kind,
// owner, deletion state, lastModified, capabilities) are silently dropped
// before application. Requires writer access.
func (f *FileStore) ApplyTrackedPatch(ctx context.Context, key string, info PatchInfo, user User) (*PatchResult, error) {
	start := time.Now()
	result, err := f.applyTrackedPatch(ctx, key, info, user)
	f.s.observe("files", "patch", start, err)
	return result, err
}

func (f *FileStore) applyTrackedPatch(ctx context.Context, key string, info PatchInfo, user User) (*PatchResult, error) {
	filtered, revert, err := f.applyFilePatch(ctx, key, info.Patch, user)
	if err != nil {
		return nil, err
	}

	if err := f.s.Revisions.add(ctx, Revision{
		File:       key,
		Created:    nowMillis(),
		User:       user.Key,
		App:        info.App,
		AppVersion: info.AppVersion,
		Patch:      revert,
	}); err != nil {
		return nil, err
	}

	result := &PatchResult{
		ID:         info.ID,
		App:        info.App,
		AppVersion: info.AppVersion,
		Patch:      filtered,
		Revert:     revert,
	}

	users, err := f.FileUserIDs(ctx, key)
	if err != nil {
		return nil, err
	}
	file, err := f.Get(ctx, key, false)
	if err != nil {
		return nil, err
	}
	f.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationPatch,
		Data:      result,
		Kind:      file.Kind,
		ID:        key,
	}, Filter{URL: RouteFile(key), Users: f.s.eventUsers(users...)})

	return result, nil
}

// ApplyRawPatch applies a JSON-Patch without recording a revision or client
// provenance. Internal mutation path for sibling stores; same filtering and
// writer requirement as ApplyTrackedPatch.
func (f *FileStore) ApplyRawPatch(ctx context.Context, key string, patch json.RawMessage, user User) (json.RawMessage, error) {
	_, revert, err := f.applyFilePatch(ctx, key, patch, user)
	return revert, err
}

// applyFilePatch is the shared patch pipeline: filter, access check, apply,
// reverse-diff, persist.
func (f *FileStore) applyFilePatch(ctx context.Context, key string, patch json.RawMessage, user User) (filtered, revert json.RawMessage, err error) {
	filtered, err = filterProtectedOps(patch)
	if err != nil {
		return nil, nil, err
	}

	file, err := f.Get(ctx, key, true)
	if err != nil {
		return nil, nil, err
	}
	if _, err = f.checkAccessFile(ctx, RoleWriter, file, user); err != nil {
		return nil, nil, err
	}

	before, err := encodeFile(file)
	if err != nil {
		return nil, nil, err
	}
	after, err := applyPatch(before, filtered)
	if err != nil {
		return nil, nil, err
	}

	updated, err := decodeFile(after)
	if err != nil {
		return nil, nil, &StoreError{Code: ErrBadRequest, Message: "The patch produced an invalid object"}
	}
	updated.LastModified = ModificationInfo{User: user.Key, Name: user.Name, Time: nowMillis()}

	revert, err = reversePatch(before, after)
	if err != nil {
		return nil, nil, err
	}

	data, err := encodeFile(updated)
	if err != nil {
		return nil, nil, err
	}
	if err = f.s.kv.Put(ctx, keys.File(updated.Kind, key), data); err != nil {
		return nil, nil, err
	}
	return filtered, revert, nil
}

// PatchAccess applies add/remove permission operations to a file.
//
// Operations apply sequentially, so one call may add and then remove the
// same target. Referenced users must exist (ErrBadRequest listing the
// missing ids) and expirations must lie in the future. The shared-links
// index is updated alongside each operation; a structural diff of the file
// object pre/post decides whether a patch event is emitted at all. Requires
// writer access.
func (f *FileStore) PatchAccess(ctx context.Context, key string, info AccessPatchInfo, user User) error {
	start := time.Now()
	err := f.patchAccess(ctx, key, info, user)
	f.s.observe("files", "patch-access", start, err)
	return err
}

func (f *FileStore) patchAccess(ctx context.Context, key string, info AccessPatchInfo, user User) error {
	if len(info.Patch) == 0 {
		return &StoreError{Code: ErrBadRequest, Message: "The access patch has no operations"}
	}

	file, err := f.Get(ctx, key, true)
	if err != nil {
		return err
	}
	if _, err := f.checkAccessFile(ctx, RoleWriter, file, user); err != nil {
		return err
	}

	priorUsers, err := f.FileUserIDs(ctx, key)
	if err != nil {
		return err
	}
	before, err := encodeFile(file)
	if err != nil {
		return err
	}

	// Validate every add target up front so no operation is applied when
	// the request references unknown users.
	if err := f.validateAccessTargets(ctx, info.Patch); err != nil {
		return err
	}

	type accessEvent struct {
		operation string
		target    string
	}
	var accessEvents []accessEvent

	for _, op := range info.Patch {
		switch op.Op {
		case "add":
			if op.Value == nil {
				return &StoreError{Code: ErrBadRequest, Message: "Missing \"value\" on an add operation"}
			}
			switch op.Type {
			case PermissionUser:
				if _, err := f.s.Permissions.AddUserPermission(ctx, file, *op.Value, user.Key); err != nil {
					return err
				}
				if err := f.s.Shared.add(ctx, file, op.Value.ID); err != nil {
					return err
				}
				accessEvents = append(accessEvents, accessEvent{OperationAccessGranted, op.Value.ID})
			case PermissionGroup:
				if _, err := f.s.Permissions.AddGroupPermission(ctx, file, *op.Value, user.Key); err != nil {
					return err
				}
			case PermissionAnyone:
				if _, err := f.s.Permissions.AddAnyonePermission(ctx, file, *op.Value, user.Key); err != nil {
					return err
				}
			default:
				return &StoreError{Code: ErrBadRequest, Message: "Unknown permission type: " + string(op.Type)}
			}
		case "remove":
			switch op.Type {
			case PermissionUser:
				if err := f.s.Permissions.RemoveUserPermission(ctx, file, op.ID, user.Key); err != nil {
					return err
				}
				if err := f.s.Shared.remove(ctx, file.Kind, key, op.ID); err != nil {
					return err
				}
				accessEvents = append(accessEvents, accessEvent{OperationAccessRemoved, op.ID})
			case PermissionGroup:
				if err := f.s.Permissions.RemoveGroupPermission(ctx, file, op.ID, user.Key); err != nil {
					return err
				}
			case PermissionAnyone:
				if err := f.s.Permissions.RemoveAnyonePermission(ctx, file, user.Key); err != nil {
					return err
				}
			default:
				return &StoreError{Code: ErrBadRequest, Message: "Unknown permission type: " + string(op.Type)}
			}
		default:
			return &StoreError{Code: ErrBadRequest, Message: "Unknown access operation: " + op.Op}
		}
	}

	file.LastModified = ModificationInfo{User: user.Key, Name: user.Name, Time: nowMillis()}
	after, err := encodeFile(file)
	if err != nil {
		return err
	}
	if err := f.s.kv.Put(ctx, keys.File(file.Kind, key), after); err != nil {
		return err
	}

	diff, changed, err := structuralDiff(before, after)
	if err != nil {
		return err
	}
	if changed {
		currentUsers, err := f.FileUserIDs(ctx, key)
		if err != nil {
			return err
		}
		f.s.sink.Publish(Event{
			Type:      "event",
			Operation: OperationPatch,
			Data:      json.RawMessage(diff),
			Kind:      file.Kind,
			ID:        key,
		}, Filter{URL: RouteFile(key), Users: f.s.eventUsers(unionStrings(priorUsers, currentUsers)...)})
	}

	for _, ev := range accessEvents {
		f.s.sink.Publish(Event{
			Type:      "event",
			Operation: ev.operation,
			Kind:      file.Kind,
			ID:        key,
		}, Filter{URL: RouteFiles, Users: f.s.eventUsers(ev.target)})
	}
	return nil
}

// validateAccessTargets checks that every user referenced by an add
// operation exists.
func (f *FileStore) validateAccessTargets(ctx context.Context, ops []AccessOperation) error {
	var ids []string
	for _, op := range ops {
		if op.Op == "add" && op.Type == PermissionUser && op.Value != nil && op.Value.ID != "" {
			ids = append(ids, op.Value.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, missing, err := f.s.Users.ReadMany(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &StoreError{Code: ErrBadRequest, Message: "Some users not found in the system: " + strings.Join(missing, ", ")}
	}
	return nil
}

// Delete soft-deletes a file.
//
// Requires the owner role specifically; a writer gets ErrForbidden. The
// deleted state is terminal; no restore path exists. Deletion records a bin
// marker, removes shared links for the file and its whole subtree, emits a
// deleted event, and closes live subscriptions on the file and descendants.
func (f *FileStore) Delete(ctx context.Context, key string, user User) error {
	start := time.Now()
	err := f.delete(ctx, key, user)
	f.s.observe("files", "delete", start, err)
	return err
}

func (f *FileStore) delete(ctx context.Context, key string, user User) error {
	file, err := f.Get(ctx, key, true)
	if err != nil {
		return err
	}
	role, err := f.checkAccessFile(ctx, RoleReader, file, user)
	if err != nil {
		return err
	}
	if !HasRole(RoleOwner, role) {
		return &StoreError{Code: ErrForbidden, Message: "Unauthorized to delete the object", Key: key}
	}

	affectedUsers, err := f.FileUserIDs(ctx, key)
	if err != nil {
		return err
	}

	now := nowMillis()
	file.Deleted = true
	file.DeletedInfo = &DeletedInfo{User: user.Key, Time: now}

	data, err := encodeFile(file)
	if err != nil {
		return err
	}
	entry, err := encodeBinEntry(&BinEntry{
		Key:         key,
		Kind:        file.Kind,
		DeletedInfo: *file.DeletedInfo,
	})
	if err != nil {
		return err
	}

	ops := []kv.Op{
		{Type: kv.OpPut, Key: keys.File(file.Kind, key), Value: data},
		{Type: kv.OpPut, Key: keys.Bin(file.Kind, key), Value: entry},
	}

	// Drop shared links for the file and every descendant. Descendants
	// themselves stay untouched; they become unreachable through the
	// deleted ancestor.
	subtree := []*File{file}
	descendants, err := f.descendants(ctx, key)
	if err != nil {
		return err
	}
	subtree = append(subtree, descendants...)
	for _, member := range subtree {
		if err := f.s.Permissions.hydrate(ctx, member); err != nil {
			return err
		}
		for _, permission := range member.Permissions {
			if permission.Type != PermissionUser {
				continue
			}
			ops = append(ops, kv.Op{Type: kv.OpDelete, Key: keys.SharedLink(member.Kind, permission.Owner, member.Key)})
		}
	}

	if err := f.s.kv.Batch(ctx, ops); err != nil {
		return err
	}

	f.s.sink.Publish(Event{
		Type:      "event",
		Operation: OperationDeleted,
		Kind:      file.Kind,
		ID:        key,
	}, Filter{URL: RouteFiles, Users: f.s.eventUsers(affectedUsers...)})

	for _, member := range subtree {
		f.s.sink.CloseByURL(RouteFile(member.Key))
	}
	return nil
}

// descendants returns every non-deleted file whose ancestor chain contains
// key. Full primary scan; deletion is rare enough that no child index is
// maintained for it.
func (f *FileStore) descendants(ctx context.Context, key string) ([]*File, error) {
	it, err := f.s.kv.Iterator(kv.IterOptions{Prefix: []byte("f:")})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var result []*File
	for it.Next() {
		value, err := it.Value()
		if err != nil {
			return nil, err
		}
		file, err := decodeFile(value)
		if err != nil {
			return nil, err
		}
		if file.Deleted || !containsString(file.Parents, key) {
			continue
		}
		result = append(result, file)
	}
	return result, nil
}

// List pages files of the given kinds for a user.
//
// Without a parent, only root files (empty ancestor chain) owned by the user
// directly are returned: root listing is owner-only, and shared visibility
// flows through SharedStore, not this path. With a parent, direct children
// the user can read (any role, including inherited) are returned. Items get
// per-user capabilities and lastModified.byMe. A cursor is returned even for
// an empty page; once exhausted, the cursor is stable across calls.
func (f *FileStore) List(ctx context.Context, kinds []string, user User, opts ListOptions) (*ListResult[*File], error) {
	start := time.Now()
	result, err := f.list(ctx, kinds, user, opts)
	f.s.observe("files", "list", start, err)
	return result, err
}

func (f *FileStore) list(ctx context.Context, kinds []string, user User, opts ListOptions) (*ListResult[*File], error) {
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
		decoded, err := f.s.cursor.Decode(opts.Cursor)
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
		prefix := keys.FileKindPrefix(kind)
		if resuming {
			// Skip kinds that precede the cursor position.
			if !hasBytePrefix(state.LastKey, prefix) {
				continue
			}
		}

		it, err := f.s.kv.Iterator(kv.IterOptions{Prefix: prefix, Reverse: true})
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
				file, err := decodeFile(value)
				if err != nil {
					return err
				}
				lastKey = string(it.Key())

				if file.Deleted {
					continue
				}
				if state.Parent == "" {
					if len(file.Parents) > 0 || file.Owner != user.Key {
						continue
					}
					f.decorate(file, RoleOwner, user)
				} else {
					if len(file.Parents) == 0 || file.Parents[len(file.Parents)-1] != state.Parent {
						continue
					}
					role, err := f.s.Permissions.ReadFileAccess(ctx, file, user.Key, f.loader(), nil)
					if err != nil {
						return err
					}
					if role == "" {
						continue
					}
					f.decorate(file, role, user)
				}
				items = append(items, file)
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}

	// Stable terminal cursor: an exhausted listing re-returns the cursor it
	// was called with.
	if len(items) == 0 && opts.Cursor != "" {
		return &ListResult[*File]{Items: items, Cursor: opts.Cursor}, nil
	}

	state.LastKey = lastKey
	encoded, err := f.s.cursor.Encode(state)
	if err != nil {
		return nil, err
	}
	return &ListResult[*File]{Items: items, Cursor: encoded}, nil
}

// FileUserIDs returns the users with a stake in a file: the owner first,
// then the file's own directly shared users, then each ancestor's shared
// users walking from the file toward the root. De-duplicated, order
// preserved.
func (f *FileStore) FileUserIDs(ctx context.Context, key string) ([]string, error) {
	file, err := f.Get(ctx, key, true)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, &StoreError{Code: ErrNotFound, Message: "Not found", Key: key}
	}

	ids := []string{file.Owner}
	appendTargets := func(candidate *File) {
		for _, permission := range candidate.Permissions {
			if permission.Type == PermissionUser && !containsString(ids, permission.Owner) {
				ids = append(ids, permission.Owner)
			}
		}
	}
	appendTargets(file)

	for i := len(file.Parents) - 1; i >= 0; i-- {
		ancestor, err := f.Get(ctx, file.Parents[i], true)
		if err != nil {
			return nil, err
		}
		if ancestor == nil {
			continue
		}
		appendTargets(ancestor)
	}
	return ids, nil
}

// ListUsers returns the user records behind FileUserIDs. Requires reader
// access.
func (f *FileStore) ListUsers(ctx context.Context, key string, user User) ([]*User, error) {
	if _, err := f.CheckAccess(ctx, RoleReader, key, user); err != nil {
		return nil, err
	}
	ids, err := f.FileUserIDs(ctx, key)
	if err != nil {
		return nil, err
	}
	users, _, err := f.s.Users.ReadMany(ctx, ids)
	return users, err
}

func hasBytePrefix(s string, prefix []byte) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == string(prefix)
}

func unionStrings(a, b []string) []string {
	result := append([]string{}, a...)
	for _, item := range b {
		if !containsString(result, item) {
			result = append(result, item)
		}
	}
	return result
}
