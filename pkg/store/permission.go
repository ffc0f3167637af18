package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/api-client/net-store/pkg/kv"
	"github.com/api-client/net-store/pkg/store/keys"
)

// maxAncestorDepth bounds the parent-chain walk during access resolution.
// The key-value engine cannot enforce tree-acyclicity, so the walk carries
// both a depth limit and a visited set; breaching either is an invariant
// violation, not a user error.
const maxAncestorDepth = 64

// FileLoader fetches an ancestor file by key during access resolution.
// Ancestors are addressed by key, never by pointer, so a loader can be
// backed by the store, a cache, or test fixtures.
type FileLoader func(ctx context.Context, key string) (*File, error)

// PermissionStore owns permission records and role resolution.
//
// Records are stored one row per permission id; the owning file keeps the id
// set in PermissionIDs. Add operations mutate the passed file in memory
// (appending to PermissionIDs/Permissions) and persist only the permission
// row; the caller persists the file, so file + permission updates land in
// one batch at the call site.
type PermissionStore struct {
	s *Store
}

// PermissionOptions carries the target and grant of an add operation.
type PermissionOptions struct {
	// ID is the target user or group key. Ignored for anyone grants.
	ID string

	// Role is the granted access level.
	Role Role

	// ExpirationTime is an optional expiry in epoch milliseconds.
	ExpirationTime int64
}

// Write persists a permission record under the given id.
func (p *PermissionStore) Write(ctx context.Context, id string, permission Permission) error {
	if err := guardCtx(ctx); err != nil {
		return err
	}
	permission.Key = id
	data, err := encodePermission(&permission)
	if err != nil {
		return err
	}
	return p.s.kv.Put(ctx, keys.Permission(id), data)
}

// Read returns a permission record, or nil when absent. Absence is not an
// error: dangling ids in a file's PermissionIDs read as skipped.
func (p *PermissionStore) Read(ctx context.Context, id string) (*Permission, error) {
	data, err := p.s.kv.Get(ctx, keys.Permission(id))
	if err == kv.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePermission(data)
}

// Delete removes a permission record. The removing user is recorded only in
// logs; rows are dropped, references are cleared by the caller.
func (p *PermissionStore) Delete(ctx context.Context, id, removingUser string) error {
	if err := guardCtx(ctx); err != nil {
		return err
	}
	return p.s.kv.Delete(ctx, keys.Permission(id))
}

// ReadAll hydrates the permission records referenced by a file. Dangling ids
// are skipped, not fatal.
func (p *PermissionStore) ReadAll(ctx context.Context, ids []string) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rowKeys := make([][]byte, len(ids))
	for i, id := range ids {
		rowKeys[i] = keys.Permission(id)
	}
	values, err := p.s.kv.GetMany(ctx, rowKeys)
	if err != nil {
		return nil, err
	}

	permissions := make([]Permission, 0, len(ids))
	for _, value := range values {
		if value == nil {
			continue
		}
		permission, err := decodePermission(value)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, *permission)
	}
	return permissions, nil
}

// AddUserPermission grants a role on the file to a single user.
//
// If a user permission for the same target already exists, its role and
// expiration are updated in place and the existing id is returned: the
// (file, type, target) triple is unique by construction. Otherwise a new
// record is allocated, persisted, and its id appended to the file's
// PermissionIDs.
//
// Returns ErrValidation when the target id is missing or the expiration time
// is in the past.
func (p *PermissionStore) AddUserPermission(ctx context.Context, file *File, op PermissionOptions, addingUser string) (string, error) {
	return p.addPermission(ctx, file, PermissionUser, op, addingUser)
}

// AddGroupPermission grants a role on the file to a group. Same contract as
// AddUserPermission.
func (p *PermissionStore) AddGroupPermission(ctx context.Context, file *File, op PermissionOptions, addingUser string) (string, error) {
	return p.addPermission(ctx, file, PermissionGroup, op, addingUser)
}

// AddAnyonePermission grants a role on the file to every authenticated user.
// The permission record has no target owner.
func (p *PermissionStore) AddAnyonePermission(ctx context.Context, file *File, op PermissionOptions, addingUser string) (string, error) {
	op.ID = ""
	return p.addPermission(ctx, file, PermissionAnyone, op, addingUser)
}

func (p *PermissionStore) addPermission(ctx context.Context, file *File, permType PermissionType, op PermissionOptions, addingUser string) (string, error) {
	if err := guardCtx(ctx); err != nil {
		return "", err
	}
	if permType != PermissionAnyone && op.ID == "" {
		return "", &StoreError{Code: ErrValidation, Message: "Missing \"id\" on the permission target"}
	}
	if !op.Role.Valid() {
		return "", &StoreError{Code: ErrValidation, Message: "Unknown role: " + string(op.Role)}
	}
	if op.ExpirationTime != 0 && op.ExpirationTime <= nowMillis() {
		return "", &StoreError{Code: ErrValidation, Message: "The \"expirationTime\" is in the past"}
	}

	if err := p.hydrate(ctx, file); err != nil {
		return "", err
	}

	// Upsert: one record per (file, type, target).
	for i := range file.Permissions {
		existing := &file.Permissions[i]
		if existing.Type != permType || existing.Owner != op.ID {
			continue
		}
		existing.Role = op.Role
		existing.ExpirationTime = op.ExpirationTime
		if err := p.Write(ctx, existing.Key, *existing); err != nil {
			return "", err
		}
		return existing.Key, nil
	}

	permission := Permission{
		Key:            uuid.NewString(),
		Type:           permType,
		Owner:          op.ID,
		Role:           op.Role,
		AddingUser:     addingUser,
		ExpirationTime: op.ExpirationTime,
	}
	if err := p.Write(ctx, permission.Key, permission); err != nil {
		return "", err
	}

	file.PermissionIDs = append(file.PermissionIDs, permission.Key)
	file.Permissions = append(file.Permissions, permission)
	return permission.Key, nil
}

// RemoveUserPermission drops a user's grant from the file. Removing a grant
// that does not exist is a no-op, not an error.
func (p *PermissionStore) RemoveUserPermission(ctx context.Context, file *File, targetID, removingUser string) error {
	return p.removePermission(ctx, file, PermissionUser, targetID, removingUser)
}

// RemoveGroupPermission drops a group's grant from the file. No-op when
// absent.
func (p *PermissionStore) RemoveGroupPermission(ctx context.Context, file *File, targetID, removingUser string) error {
	return p.removePermission(ctx, file, PermissionGroup, targetID, removingUser)
}

// RemoveAnyonePermission drops the anyone grant from the file. No-op when
// absent.
func (p *PermissionStore) RemoveAnyonePermission(ctx context.Context, file *File, removingUser string) error {
	return p.removePermission(ctx, file, PermissionAnyone, "", removingUser)
}

func (p *PermissionStore) removePermission(ctx context.Context, file *File, permType PermissionType, targetID, removingUser string) error {
	if err := guardCtx(ctx); err != nil {
		return err
	}
	if err := p.hydrate(ctx, file); err != nil {
		return err
	}

	for i := range file.Permissions {
		existing := file.Permissions[i]
		if existing.Type != permType || existing.Owner != targetID {
			continue
		}
		if err := p.Delete(ctx, existing.Key, removingUser); err != nil {
			return err
		}
		file.Permissions = append(file.Permissions[:i], file.Permissions[i+1:]...)
		file.PermissionIDs = removeString(file.PermissionIDs, existing.Key)
		return nil
	}
	return nil
}

// FindUserPermission resolves the role the file's own permissions grant to
// the user, or "" when none apply.
//
// Precedence: an exact user match wins over group matches, which win over an
// anyone grant. Within a tier the highest applicable role is returned, not
// the first match. Expired permissions never apply.
func (p *PermissionStore) FindUserPermission(ctx context.Context, file *File, userID string, userGroups []string) (Role, error) {
	if err := p.hydrate(ctx, file); err != nil {
		return "", err
	}
	now := nowMillis()

	var userRole, groupRole, anyoneRole Role
	for i := range file.Permissions {
		permission := &file.Permissions[i]
		if permission.Expired(now) {
			continue
		}
		switch permission.Type {
		case PermissionUser:
			if permission.Owner == userID && permission.Role.Rank() > userRole.Rank() {
				userRole = permission.Role
			}
		case PermissionGroup:
			if containsString(userGroups, permission.Owner) && permission.Role.Rank() > groupRole.Rank() {
				groupRole = permission.Role
			}
		case PermissionAnyone:
			if permission.Role.Rank() > anyoneRole.Rank() {
				anyoneRole = permission.Role
			}
		}
	}

	switch {
	case userRole != "":
		return userRole, nil
	case groupRole != "":
		return groupRole, nil
	default:
		return anyoneRole, nil
	}
}

// ReadFileAccess resolves the user's effective role on a file.
//
// Resolution order:
//  1. The file's recorded owner always resolves to the owner role.
//  2. The file's own permissions, via FindUserPermission.
//  3. The ancestor chain, walked from the file outward to the root: the
//     FIRST ancestor granting a role wins (nearest-grant semantics).
//     Owning an ancestor counts as an owner grant.
//
// Returns "" when no role is found anywhere in the chain. The walk is a
// bounded, key-addressed loop with a cycle guard; a chain deeper than
// maxAncestorDepth or containing a cycle is a broken invariant (ErrInternal).
func (p *PermissionStore) ReadFileAccess(ctx context.Context, file *File, userID string, load FileLoader, userGroups []string) (Role, error) {
	if file == nil {
		return "", nil
	}
	if file.Owner == userID {
		return RoleOwner, nil
	}

	role, err := p.FindUserPermission(ctx, file, userID, userGroups)
	if err != nil {
		return "", err
	}
	if role != "" {
		return role, nil
	}

	// Nearest ancestor first: Parents is ordered root → immediate parent.
	visited := map[string]bool{file.Key: true}
	for i := len(file.Parents) - 1; i >= 0; i-- {
		if len(file.Parents)-i > maxAncestorDepth {
			return "", &StoreError{Code: ErrInternal, Message: "Ancestor chain exceeds maximum depth", Key: file.Key}
		}
		ancestorKey := file.Parents[i]
		if visited[ancestorKey] {
			return "", &StoreError{Code: ErrInternal, Message: "Cycle detected in ancestor chain", Key: ancestorKey}
		}
		visited[ancestorKey] = true

		ancestor, err := load(ctx, ancestorKey)
		if err != nil {
			return "", err
		}
		if ancestor == nil {
			continue
		}
		if ancestor.Owner == userID {
			return RoleOwner, nil
		}
		role, err := p.FindUserPermission(ctx, ancestor, userID, userGroups)
		if err != nil {
			return "", err
		}
		if role != "" {
			return role, nil
		}
	}
	return "", nil
}

// hydrate fills file.Permissions from PermissionIDs when not yet resolved.
func (p *PermissionStore) hydrate(ctx context.Context, file *File) error {
	if len(file.Permissions) > 0 || len(file.PermissionIDs) == 0 {
		return nil
	}
	permissions, err := p.ReadAll(ctx, file.PermissionIDs)
	if err != nil {
		return err
	}
	file.Permissions = permissions
	return nil
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func removeString(list []string, value string) []string {
	for i, item := range list {
		if item == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
