package permission

import "testing"

// expected spells out every grant per role so the table in permission.go
// cannot drift without a test failing.
var expected = map[Role]map[Permission]bool{
	RoleOwner: {
		OrganizationRead: true, OrganizationWrite: true, OrganizationDelete: true,
		MemberRead: true, MemberInvite: true, MemberRemove: true, MemberUpdateRole: true,
		ProjectRead: true, ProjectWrite: true, ProjectDelete: true, ProjectAssign: true,
		TaskRead: true, TaskWrite: true, TaskDelete: true, TaskAssign: true,
	},
	RoleAdmin: {
		OrganizationRead: true, OrganizationWrite: true, OrganizationDelete: false,
		MemberRead: true, MemberInvite: true, MemberRemove: true, MemberUpdateRole: true,
		ProjectRead: true, ProjectWrite: true, ProjectDelete: true, ProjectAssign: true,
		TaskRead: true, TaskWrite: true, TaskDelete: true, TaskAssign: true,
	},
	RoleManager: {
		OrganizationRead: true, OrganizationWrite: false, OrganizationDelete: false,
		MemberRead: true, MemberInvite: false, MemberRemove: false, MemberUpdateRole: false,
		ProjectRead: true, ProjectWrite: true, ProjectDelete: false, ProjectAssign: true,
		TaskRead: true, TaskWrite: true, TaskDelete: true, TaskAssign: true,
	},
	RoleMember: {
		OrganizationRead: true, OrganizationWrite: false, OrganizationDelete: false,
		MemberRead: true, MemberInvite: false, MemberRemove: false, MemberUpdateRole: false,
		ProjectRead: true, ProjectWrite: false, ProjectDelete: false, ProjectAssign: false,
		TaskRead: true, TaskWrite: true, TaskDelete: false, TaskAssign: false,
	},
	RoleGuest: {
		OrganizationRead: true, OrganizationWrite: false, OrganizationDelete: false,
		MemberRead: true, MemberInvite: false, MemberRemove: false, MemberUpdateRole: false,
		ProjectRead: true, ProjectWrite: false, ProjectDelete: false, ProjectAssign: false,
		TaskRead: true, TaskWrite: false, TaskDelete: false, TaskAssign: false,
	},
}

func TestRolePermissionTable(t *testing.T) {
	for _, role := range Roles {
		set := Of(role)
		for _, p := range All {
			if got, want := set.Has(p), expected[role][p]; got != want {
				t.Errorf("role %s permission %s: got %v, want %v", role, p, got, want)
			}
		}
	}
}

func TestOwnerHasEveryPermission(t *testing.T) {
	set := Of(RoleOwner)
	if len(set) != len(All) {
		t.Fatalf("owner has %d permissions, want %d", len(set), len(All))
	}
	if !set.HasAll(All...) {
		t.Fatal("owner is missing a catalog permission")
	}
}

func TestUnknownRoleDeniesAll(t *testing.T) {
	set := Of(Role("superuser"))
	if len(set) != 0 {
		t.Fatalf("unknown role got %d permissions", len(set))
	}
	for _, p := range All {
		if set.Has(p) {
			t.Errorf("unknown role granted %s", p)
		}
	}
}

func TestNilSetDeniesAll(t *testing.T) {
	var set Set
	if set.Has(TaskRead) {
		t.Error("nil set granted task:read")
	}
	if set.HasAny(OrganizationRead, TaskRead) {
		t.Error("nil set HasAny returned true")
	}
	if set.HasAll() != true {
		t.Error("HasAll with no arguments should be vacuously true")
	}
}

func TestHasAnyHasAll(t *testing.T) {
	set := Of(RoleMember)

	tests := []struct {
		name  string
		any   bool
		all   bool
		perms []Permission
	}{
		{"single granted", true, true, []Permission{TaskWrite}},
		{"single denied", false, false, []Permission{TaskDelete}},
		{"mixed", true, false, []Permission{TaskWrite, ProjectWrite}},
		{"all granted", true, true, []Permission{TaskRead, TaskWrite, ProjectRead}},
		{"none granted", false, false, []Permission{OrganizationDelete, MemberRemove}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.HasAny(tt.perms...); got != tt.any {
				t.Errorf("HasAny(%v) = %v, want %v", tt.perms, got, tt.any)
			}
			if got := set.HasAll(tt.perms...); got != tt.all {
				t.Errorf("HasAll(%v) = %v, want %v", tt.perms, got, tt.all)
			}
		})
	}
}
