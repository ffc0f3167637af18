package store

import (
	"encoding/json"
	"time"
)

// Well-known file kinds. Kind is an open string so deployments can add their
// own hierarchy levels; these are the ones the default clients use.
const (
	KindSpace   = "space"
	KindProject = "project"
	KindRequest = "request"
)

// User is the authenticated identity performing an operation. Authentication
// itself happens outside this layer; stores only consume the resolved user.
type User struct {
	Key     string `json:"key"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// ModificationInfo records who last touched a file and when.
type ModificationInfo struct {
	// User is the key of the user who made the modification.
	User string `json:"user"`

	// Name is the display name of that user, denormalized for listings.
	Name string `json:"name,omitempty"`

	// Time is the modification time in epoch milliseconds.
	Time int64 `json:"time"`

	// ByMe is derived per requesting user on read; never persisted as true.
	ByMe bool `json:"byMe"`
}

// DeletedInfo records who soft-deleted a file and when.
type DeletedInfo struct {
	User string `json:"user"`
	Time int64  `json:"time"`
}

// File is the generalized persisted entity participating in the hierarchy and
// permission model. Workspaces, projects, and data namespaces are all files
// distinguished by Kind.
//
// Invariants:
//   - Parents is exactly the ancestor chain ordered root → immediate parent;
//     a root file has an empty chain.
//   - PermissionIDs is always persisted. Permissions is hydrated on read and
//     never stored.
//   - Files are soft-deleted only: Deleted flips to true and a bin marker is
//     written; rows are never physically removed by this layer.
type File struct {
	// Key is the unique identifier of the file within its kind.
	Key string `json:"key"`

	// Kind discriminates the hierarchy level (space, project, ...).
	Kind string `json:"kind"`

	// Name is the user-facing label. Patchable.
	Name string `json:"name,omitempty"`

	// Owner is the key of the owning user. The owner always resolves to
	// the owner role regardless of permission entries.
	Owner string `json:"owner"`

	// Parents is the ancestor key chain, root first.
	Parents []string `json:"parents"`

	// PermissionIDs is the set of permission record keys granted directly
	// on this file.
	PermissionIDs []string `json:"permissionIds"`

	// Permissions is the resolved permission list, hydrated on read.
	Permissions []Permission `json:"permissions,omitempty"`

	// Deleted marks the file soft-deleted. Deleted files read as absent.
	Deleted bool `json:"deleted,omitempty"`

	// DeletedInfo records the deletion actor and time when Deleted is set.
	DeletedInfo *DeletedInfo `json:"deletedInfo,omitempty"`

	// LastModified tracks the most recent mutation.
	LastModified ModificationInfo `json:"lastModified"`

	// Capabilities is derived per requesting user on read; never persisted.
	Capabilities *Capabilities `json:"capabilities,omitempty"`

	// Info carries free-form, patchable client metadata (description,
	// display options, and similar).
	Info map[string]any `json:"info,omitempty"`
}

// Clone returns a deep copy of the file.
func (f *File) Clone() *File {
	clone := *f
	clone.Parents = append([]string{}, f.Parents...)
	clone.PermissionIDs = append([]string{}, f.PermissionIDs...)
	clone.Permissions = append([]Permission{}, f.Permissions...)
	if f.DeletedInfo != nil {
		di := *f.DeletedInfo
		clone.DeletedInfo = &di
	}
	if f.Capabilities != nil {
		caps := *f.Capabilities
		clone.Capabilities = &caps
	}
	if f.Info != nil {
		clone.Info = make(map[string]any, len(f.Info))
		for k, v := range f.Info {
			clone.Info[k] = v
		}
	}
	return &clone
}

// PermissionType identifies what a permission record targets.
type PermissionType string

const (
	// PermissionUser targets a single user by key.
	PermissionUser PermissionType = "user"

	// PermissionGroup targets a group by key. Group membership resolution
	// is an open question upstream; the records are stored and matched by
	// the caller-provided group list.
	PermissionGroup PermissionType = "group"

	// PermissionAnyone targets every authenticated user.
	PermissionAnyone PermissionType = "anyone"
)

// Permission grants a role on a file to a user, a group, or anyone.
//
// Invariant: at most one permission record exists per (file, type, owner)
// triple. Adding a permission for an existing subject updates the role in
// place instead of creating a duplicate.
type Permission struct {
	// Key is the permission record's unique id.
	Key string `json:"key"`

	// Type is the target kind: user, group, or anyone.
	Type PermissionType `json:"type"`

	// Owner is the target user or group key. Absent for anyone.
	Owner string `json:"owner,omitempty"`

	// Role is the granted access level.
	Role Role `json:"role"`

	// AddingUser is the key of the user who granted the permission.
	AddingUser string `json:"addingUser"`

	// ExpirationTime is an optional expiry in epoch milliseconds. Expired
	// permissions are ignored during role resolution.
	ExpirationTime int64 `json:"expirationTime,omitempty"`
}

// Expired reports whether the permission has an expiry in the past.
func (p *Permission) Expired(now int64) bool {
	return p.ExpirationTime != 0 && p.ExpirationTime <= now
}

// SharedLink is a row in the "files shared with user X" secondary index,
// maintained by FileStore on every permission mutation. One row exists per
// (file, user) granted directly or transitively.
type SharedLink struct {
	// ID is the shared file's key.
	ID string `json:"id"`

	// Kind mirrors the file's kind.
	Kind string `json:"kind"`

	// UID is the target user's key.
	UID string `json:"uid"`

	// Parent is the file's immediate parent key, when it has one.
	Parent string `json:"parent,omitempty"`
}

// HttpHistory is a single recorded HTTP exchange. Records are append-mostly,
// always scoped to the creating user, and indexed by up to four dimensions
// (space, project, request, app).
type HttpHistory struct {
	// Key is the public identifier: base64url of the raw primary store key.
	// Derived on add; never supplied by clients.
	Key string `json:"key,omitempty"`

	// Created is the record creation time in epoch milliseconds.
	Created int64 `json:"created"`

	// User is the creating user's key, stamped on add.
	User string `json:"user,omitempty"`

	// App, Space, Project, and Request scope the record to the matching
	// secondary index dimensions. At least one of App, Space, or Project
	// is required; Request additionally requires Project.
	App     string `json:"app,omitempty"`
	Space   string `json:"space,omitempty"`
	Project string `json:"project,omitempty"`
	Request string `json:"request,omitempty"`

	// Log holds the recorded request/response pair.
	Log HistoryLog `json:"log"`

	// Deleted soft-marks the primary row. Secondary index rows are removed
	// best-effort; readers skip rows whose primary is deleted.
	Deleted bool `json:"_deleted,omitempty"`
}

// HistoryLog is the recorded HTTP exchange payload.
type HistoryLog struct {
	Request  *HistoryRequest  `json:"request,omitempty"`
	Response *HistoryResponse `json:"response,omitempty"`
}

// HistoryRequest captures the request half of an exchange.
type HistoryRequest struct {
	URL         string          `json:"url,omitempty"`
	Method      string          `json:"method,omitempty"`
	Headers     string          `json:"headers,omitempty"`
	HTTPMessage string          `json:"httpMessage,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// HistoryResponse captures the response half of an exchange.
type HistoryResponse struct {
	Status  int             `json:"status,omitempty"`
	Headers string          `json:"headers,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Revision is a persisted reverse patch: applying Patch to the file's
// current state yields the state before the tracked change.
type Revision struct {
	// Key is the revision row key (file key + timestamp + nonce).
	Key string `json:"key"`

	// File is the patched file's key.
	File string `json:"file"`

	// Created is the patch time in epoch milliseconds.
	Created int64 `json:"created"`

	// User is the patching user's key.
	User string `json:"user"`

	// App and AppVersion record the client that produced the change.
	App        string `json:"app,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`

	// Patch is the reverse JSON-Patch document.
	Patch json.RawMessage `json:"patch"`

	// Deleted marks the revision as belonging to a deleted file.
	Deleted bool `json:"deleted,omitempty"`
}

// BinEntry is a row in the deletion log.
type BinEntry struct {
	// Key is the deleted object's original key.
	Key string `json:"key"`

	// Kind is the deleted object's kind.
	Kind string `json:"kind"`

	// DeletedInfo records the deletion actor and time.
	DeletedInfo DeletedInfo `json:"deletedInfo"`
}

// nowMillis returns the current time in epoch milliseconds. Overridable in
// tests.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}
