package permission

// ============================================
// Roles
// ============================================

// Role is an organization membership role.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleGuest   Role = "guest"
)

// Roles lists every valid role.
var Roles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleMember, RoleGuest}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role Role) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ============================================
// Permissions
// ============================================

// Permission is an atomic capability string gating one action on one
// resource kind.
type Permission string

const (
	OrganizationRead   Permission = "organization:read"
	OrganizationWrite  Permission = "organization:write"
	OrganizationDelete Permission = "organization:delete"

	MemberRead       Permission = "member:read"
	MemberInvite     Permission = "member:invite"
	MemberRemove     Permission = "member:remove"
	MemberUpdateRole Permission = "member:update_role"

	ProjectRead   Permission = "project:read"
	ProjectWrite  Permission = "project:write"
	ProjectDelete Permission = "project:delete"
	ProjectAssign Permission = "project:assign"

	TaskRead   Permission = "task:read"
	TaskWrite  Permission = "task:write"
	TaskDelete Permission = "task:delete"
	TaskAssign Permission = "task:assign"
)

// All lists the full permission catalog.
var All = []Permission{
	OrganizationRead, OrganizationWrite, OrganizationDelete,
	MemberRead, MemberInvite, MemberRemove, MemberUpdateRole,
	ProjectRead, ProjectWrite, ProjectDelete, ProjectAssign,
	TaskRead, TaskWrite, TaskDelete, TaskAssign,
}

// rolePermissions maps each role to its literal permission list. The sets
// happen to nest (owner ⊇ admin ⊇ manager ⊇ member ⊇ guest) but each list is
// spelled out in full so a role's grants can be read, and changed, in one
// place.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		OrganizationRead, OrganizationWrite, OrganizationDelete,
		MemberRead, MemberInvite, MemberRemove, MemberUpdateRole,
		ProjectRead, ProjectWrite, ProjectDelete, ProjectAssign,
		TaskRead, TaskWrite, TaskDelete, TaskAssign,
	},
	RoleAdmin: {
		OrganizationRead, OrganizationWrite,
		MemberRead, MemberInvite, MemberRemove, MemberUpdateRole,
		ProjectRead, ProjectWrite, ProjectDelete, ProjectAssign,
		TaskRead, TaskWrite, TaskDelete, TaskAssign,
	},
	RoleManager: {
		OrganizationRead,
		MemberRead,
		ProjectRead, ProjectWrite, ProjectAssign,
		TaskRead, TaskWrite, TaskDelete, TaskAssign,
	},
	RoleMember: {
		OrganizationRead,
		MemberRead,
		ProjectRead,
		TaskRead, TaskWrite,
	},
	RoleGuest: {
		OrganizationRead,
		MemberRead,
		ProjectRead,
		TaskRead,
	},
}

// ============================================
// Permission Sets
// ============================================

// Set is a resolved permission set for one membership. The zero value (nil)
// denies everything, which is what callers get for a missing, invited or
// suspended membership.
type Set map[Permission]struct{}

// Of returns the permission set for a role. Unknown roles get the empty set.
func Of(role Role) Set {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	set := make(Set, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set grants p.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether the set grants at least one of perms.
func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set grants every one of perms.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}
