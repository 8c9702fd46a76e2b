package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
)

// fakeOrgRepo serves memberships from a map keyed "orgID/userID".
type fakeOrgRepo struct {
	repository.OrganizationRepository
	members map[string]*repository.Membership
	calls   int
}

func (f *fakeOrgRepo) FindMember(ctx context.Context, orgID, userID string) (*repository.Membership, error) {
	f.calls++
	return f.members[orgID+"/"+userID], nil
}

func TestResolveMembershipStates(t *testing.T) {
	repo := &fakeOrgRepo{members: map[string]*repository.Membership{
		"org1/active-member":   {Role: "member", Status: repository.MembershipActive},
		"org1/invited-admin":   {Role: "admin", Status: repository.MembershipInvited},
		"org1/suspended-owner": {Role: "owner", Status: repository.MembershipSuspended},
	}}
	svc := NewPermissionService(repo, nil)

	tests := []struct {
		name   string
		userID string
		want   int // expected number of granted permissions
	}{
		{"active member gets member grants", "active-member", len(permission.Of(permission.RoleMember))},
		{"invited membership grants nothing", "invited-admin", 0},
		{"suspended membership grants nothing", "suspended-owner", 0},
		{"non-member gets empty set", "stranger", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := svc.Resolve(context.Background(), tt.userID, "org1")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(set) != tt.want {
				t.Errorf("got %d permissions, want %d", len(set), tt.want)
			}
		})
	}
}

func TestRequireDeniesWithForbidden(t *testing.T) {
	repo := &fakeOrgRepo{members: map[string]*repository.Membership{
		"org1/u1": {Role: "member", Status: repository.MembershipActive},
	}}
	svc := NewPermissionService(repo, nil)
	ctx := context.Background()

	if err := svc.Require(ctx, "u1", "org1", permission.TaskWrite); err != nil {
		t.Errorf("member should hold task:write, got %v", err)
	}
	if err := svc.Require(ctx, "u1", "org1", permission.OrganizationDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("member deleting organization: got %v, want ErrForbidden", err)
	}
	if err := svc.Require(ctx, "stranger", "org1", permission.OrganizationRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger read: got %v, want ErrForbidden", err)
	}
}

func TestRequireAnyAndAll(t *testing.T) {
	repo := &fakeOrgRepo{members: map[string]*repository.Membership{
		"org1/u1": {Role: "manager", Status: repository.MembershipActive},
	}}
	svc := NewPermissionService(repo, nil)
	ctx := context.Background()

	if err := svc.RequireAny(ctx, "u1", "org1", permission.OrganizationDelete, permission.TaskAssign); err != nil {
		t.Errorf("manager holds task:assign, got %v", err)
	}
	if err := svc.RequireAll(ctx, "u1", "org1", permission.TaskAssign, permission.MemberInvite); !errors.Is(err, ErrForbidden) {
		t.Errorf("manager lacks member:invite, got %v, want ErrForbidden", err)
	}
	// An empty requirement list is vacuously satisfied for all, never for any.
	if err := svc.RequireAll(ctx, "u1", "org1"); err != nil {
		t.Errorf("RequireAll with no perms: got %v", err)
	}
}

func TestResolveEmptyIdentifiers(t *testing.T) {
	repo := &fakeOrgRepo{members: map[string]*repository.Membership{}}
	svc := NewPermissionService(repo, nil)

	set, err := svc.Resolve(context.Background(), "", "org1")
	if err != nil || len(set) != 0 {
		t.Errorf("empty user: set=%v err=%v", set, err)
	}
	if repo.calls != 0 {
		t.Errorf("empty identifiers should not hit the repository")
	}
}
