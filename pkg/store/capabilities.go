package store

// Capabilities describes what a specific user may do with a file. It is
// derived per request from the user's effective role and never persisted.
type Capabilities struct {
	CanEdit          bool `json:"canEdit"`
	CanComment       bool `json:"canComment"`
	CanShare         bool `json:"canShare"`
	CanCopy          bool `json:"canCopy"`
	CanReadRevisions bool `json:"canReadRevisions"`
	CanAddChildren   bool `json:"canAddChildren"`
	CanDelete        bool `json:"canDelete"`
	CanListChildren  bool `json:"canListChildren"`
	CanRename        bool `json:"canRename"`
	CanTrash         bool `json:"canTrash"`
	CanUntrash       bool `json:"canUntrash"`
}

// CapabilitiesFor derives capabilities from an effective role.
//
// Owners and writers hold full edit rights; commenters may only comment;
// readers get read-only access. CanDelete, CanTrash, and CanUntrash are
// granted to owners only, matching Delete's owner-only enforcement, so the
// advertised capability never exceeds what the operation allows.
func CapabilitiesFor(role Role, isOwner bool) Capabilities {
	if isOwner {
		role = RoleOwner
	}

	canWrite := HasRole(RoleWriter, role)
	ownerOnly := HasRole(RoleOwner, role)

	return Capabilities{
		CanEdit:          canWrite,
		CanComment:       HasRole(RoleCommenter, role),
		CanShare:         canWrite,
		CanCopy:          HasRole(RoleReader, role),
		CanReadRevisions: HasRole(RoleReader, role),
		CanAddChildren:   canWrite,
		CanDelete:        ownerOnly,
		CanListChildren:  HasRole(RoleReader, role),
		CanRename:        canWrite,
		CanTrash:         ownerOnly,
		CanUntrash:       ownerOnly,
	}
}
