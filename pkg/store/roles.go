package store

import "sort"

// Role is an access level on a file or space.
//
// Roles form a strict total order: reader < commenter < writer < owner <
// admin. File-level checks use the four-level reader..owner scale; space-level
// checks may additionally grant admin. Both scales enforce the same rule:
// the current role's rank must be at least the required minimum's rank.
type Role string

const (
	RoleReader    Role = "reader"
	RoleCommenter Role = "commenter"
	RoleWriter    Role = "writer"
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
)

// roleRanks assigns each role its position on the scale. Unknown roles rank
// zero, below every valid role.
var roleRanks = map[Role]int{
	RoleReader:    1,
	RoleCommenter: 2,
	RoleWriter:    3,
	RoleOwner:     4,
	RoleAdmin:     5,
}

// Rank returns the role's position on the ordering scale, 0 for unknown.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return roleRanks[r] != 0
}

// HasRole reports whether current satisfies the required minimum, i.e.
// current's rank is greater than or equal to minimum's rank.
func HasRole(minimum, current Role) bool {
	return current.Rank() >= minimum.Rank()
}

// SortPermissions orders permissions ascending by role rank. Ties keep their
// original relative order.
func SortPermissions(permissions []Permission) {
	sort.SliceStable(permissions, func(i, j int) bool {
		return permissions[i].Role.Rank() < permissions[j].Role.Rank()
	})
}

// FindHighestPermission returns the permission with the highest role rank,
// or nil for an empty list.
func FindHighestPermission(permissions []Permission) *Permission {
	if len(permissions) == 0 {
		return nil
	}
	highest := &permissions[0]
	for i := range permissions[1:] {
		if permissions[i+1].Role.Rank() > highest.Role.Rank() {
			highest = &permissions[i+1]
		}
	}
	return highest
}
