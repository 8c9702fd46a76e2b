package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
)

// memoryOrgRepo is a full in-memory OrganizationRepository for exercising the
// membership lifecycle.
type memoryOrgRepo struct {
	orgs    map[string]*repository.Organization
	members map[string]*repository.Membership // keyed orgID/userID
}

func newMemoryOrgRepo() *memoryOrgRepo {
	return &memoryOrgRepo{
		orgs:    make(map[string]*repository.Organization),
		members: make(map[string]*repository.Membership),
	}
}

func (r *memoryOrgRepo) key(orgID, userID string) string { return orgID + "/" + userID }

func (r *memoryOrgRepo) Create(ctx context.Context, org *repository.Organization) error {
	if org.ID == "" {
		org.ID = fmt.Sprintf("org-%d", len(r.orgs)+1)
	}
	r.orgs[org.ID] = org
	return nil
}

func (r *memoryOrgRepo) FindByID(ctx context.Context, id string) (*repository.Organization, error) {
	return r.orgs[id], nil
}

func (r *memoryOrgRepo) FindByUserID(ctx context.Context, userID string) ([]*repository.Organization, error) {
	var out []*repository.Organization
	for _, m := range r.members {
		if m.UserID == userID && m.Status == repository.MembershipActive {
			out = append(out, r.orgs[m.OrganizationID])
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) Update(ctx context.Context, org *repository.Organization) error { return nil }
func (r *memoryOrgRepo) Delete(ctx context.Context, id string) error {
	delete(r.orgs, id)
	return nil
}

func (r *memoryOrgRepo) AddMember(ctx context.Context, member *repository.Membership) error {
	member.JoinedAt = time.Now()
	r.members[r.key(member.OrganizationID, member.UserID)] = member
	return nil
}

func (r *memoryOrgRepo) FindMember(ctx context.Context, orgID, userID string) (*repository.Membership, error) {
	return r.members[r.key(orgID, userID)], nil
}

func (r *memoryOrgRepo) FindMembers(ctx context.Context, orgID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.members {
		if m.OrganizationID == orgID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	if m := r.members[r.key(orgID, userID)]; m != nil {
		m.Role = role
	}
	return nil
}

func (r *memoryOrgRepo) UpdateMemberStatus(ctx context.Context, orgID, userID, status string) error {
	if m := r.members[r.key(orgID, userID)]; m != nil {
		m.Status = status
	}
	return nil
}

func (r *memoryOrgRepo) RemoveMember(ctx context.Context, orgID, userID string) error {
	delete(r.members, r.key(orgID, userID))
	return nil
}

func (r *memoryOrgRepo) CountMembersByRole(ctx context.Context, orgID, role string) (int, error) {
	count := 0
	for _, m := range r.members {
		if m.OrganizationID == orgID && m.Role == role && m.Status == repository.MembershipActive {
			count++
		}
	}
	return count, nil
}

func (r *memoryOrgRepo) DeleteStaleInvites(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, nil
}

// stubUserRepo resolves users by email from a fixed map.
type stubUserRepo struct {
	repository.UserRepository
	byEmail map[string]*repository.User
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	return r.byEmail[email], nil
}

// stubNotifications records Notify calls and no-ops everything else.
type stubNotifications struct {
	NotificationService
	notified []string
}

func (s *stubNotifications) Notify(ctx context.Context, userID, notifType, title, message string, data map[string]interface{}) {
	s.notified = append(s.notified, userID+":"+notifType)
}

// stubMemberBroadcaster records the lifecycle events pushed to the
// organization room.
type stubMemberBroadcaster struct {
	added       []string // orgID/userID/role
	removed     []string // orgID/userID
	roleUpdated []string // orgID/userID/role/status
}

func (s *stubMemberBroadcaster) MemberAdded(orgID, userID, role, actorID string) {
	s.added = append(s.added, orgID+"/"+userID+"/"+role)
}

func (s *stubMemberBroadcaster) MemberRemoved(orgID, userID, actorID string) {
	s.removed = append(s.removed, orgID+"/"+userID)
}

func (s *stubMemberBroadcaster) MemberRoleUpdated(orgID, userID, role, status, actorID string) {
	s.roleUpdated = append(s.roleUpdated, orgID+"/"+userID+"/"+role+"/"+status)
}

func newMemberFixture() (*memoryOrgRepo, *stubMemberBroadcaster, *stubNotifications, MemberService) {
	orgRepo := newMemoryOrgRepo()
	userRepo := &stubUserRepo{byEmail: map[string]*repository.User{
		"bee@example.com": {ID: "bee", Email: "bee@example.com", Name: "Bee"},
	}}
	notifs := &stubNotifications{}
	events := &stubMemberBroadcaster{}
	perms := NewPermissionService(orgRepo, nil)
	svc := NewMemberService(orgRepo, userRepo, perms, notifs, events)
	return orgRepo, events, notifs, svc
}

func seedOrg(orgRepo *memoryOrgRepo, ownerID string) string {
	org := &repository.Organization{Name: "Acme", Slug: "acme", OwnerID: ownerID}
	orgRepo.Create(context.Background(), org)
	orgRepo.AddMember(context.Background(), &repository.Membership{
		OrganizationID: org.ID,
		UserID:         ownerID,
		Role:           string(permission.RoleOwner),
		Status:         repository.MembershipActive,
	})
	return org.ID
}

func TestInviteLifecycle(t *testing.T) {
	orgRepo, events, notifs, svc := newMemberFixture()
	ctx := context.Background()
	orgID := seedOrg(orgRepo, "alice")

	member, err := svc.Invite(ctx, "alice", orgID, "bee@example.com", permission.RoleMember)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if member.Status != repository.MembershipInvited {
		t.Errorf("status = %q, want invited", member.Status)
	}
	if len(notifs.notified) != 1 || notifs.notified[0] != "bee:member.invited" {
		t.Errorf("notified = %v, want [bee:member.invited]", notifs.notified)
	}

	// Invited members hold no permissions until they accept.
	if _, err := svc.List(ctx, "bee", orgID); !errors.Is(err, ErrForbidden) {
		t.Errorf("invited member List: got %v, want ErrForbidden", err)
	}

	// Pending invites are not announced to the room.
	if len(events.added) != 0 {
		t.Errorf("invite broadcast before acceptance: %v", events.added)
	}

	if err := svc.AcceptInvite(ctx, "bee", orgID); err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if _, err := svc.List(ctx, "bee", orgID); err != nil {
		t.Errorf("active member List: %v", err)
	}
	if len(events.added) != 1 || events.added[0] != orgID+"/bee/member" {
		t.Errorf("added broadcasts = %v, want [%s/bee/member]", events.added, orgID)
	}

	// Accepting twice conflicts.
	if err := svc.AcceptInvite(ctx, "bee", orgID); !errors.Is(err, ErrConflict) {
		t.Errorf("second accept: got %v, want ErrConflict", err)
	}
}

func TestInviteRequiresGrant(t *testing.T) {
	orgRepo, _, _, svc := newMemberFixture()
	ctx := context.Background()
	orgID := seedOrg(orgRepo, "alice")
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "carol",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})

	if _, err := svc.Invite(ctx, "carol", orgID, "bee@example.com", permission.RoleMember); !errors.Is(err, ErrForbidden) {
		t.Errorf("member inviting: got %v, want ErrForbidden", err)
	}
	// Owner role is never granted through an invite.
	if _, err := svc.Invite(ctx, "alice", orgID, "bee@example.com", permission.RoleOwner); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("owner invite: got %v, want ErrInvalidInput", err)
	}
}

func TestLastOwnerGuard(t *testing.T) {
	orgRepo, _, _, svc := newMemberFixture()
	ctx := context.Background()
	orgID := seedOrg(orgRepo, "alice")

	if err := svc.UpdateRole(ctx, "alice", orgID, "alice", permission.RoleAdmin); !errors.Is(err, ErrLastOwner) {
		t.Errorf("demote sole owner: got %v, want ErrLastOwner", err)
	}
	if err := svc.Remove(ctx, "alice", orgID, "alice"); !errors.Is(err, ErrLastOwner) {
		t.Errorf("remove sole owner: got %v, want ErrLastOwner", err)
	}
	if err := svc.Suspend(ctx, "alice", orgID, "alice"); !errors.Is(err, ErrLastOwner) {
		t.Errorf("suspend sole owner: got %v, want ErrLastOwner", err)
	}

	// With a second owner the guard lifts.
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "dave",
		Role: string(permission.RoleOwner), Status: repository.MembershipActive,
	})
	if err := svc.UpdateRole(ctx, "alice", orgID, "alice", permission.RoleAdmin); err != nil {
		t.Errorf("demote with co-owner: %v", err)
	}
}

func TestMemberLifecycleBroadcasts(t *testing.T) {
	orgRepo, events, _, svc := newMemberFixture()
	ctx := context.Background()
	orgID := seedOrg(orgRepo, "alice")
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "carol",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})

	if err := svc.UpdateRole(ctx, "alice", orgID, "carol", permission.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	want := orgID + "/carol/admin/active"
	if len(events.roleUpdated) != 1 || events.roleUpdated[0] != want {
		t.Errorf("role broadcasts = %v, want [%s]", events.roleUpdated, want)
	}

	if err := svc.Suspend(ctx, "alice", orgID, "carol"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	want = orgID + "/carol/admin/suspended"
	if len(events.roleUpdated) != 2 || events.roleUpdated[1] != want {
		t.Errorf("suspend broadcasts = %v, want second %s", events.roleUpdated, want)
	}

	if err := svc.Remove(ctx, "alice", orgID, "carol"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(events.removed) != 1 || events.removed[0] != orgID+"/carol" {
		t.Errorf("removed broadcasts = %v, want [%s/carol]", events.removed, orgID)
	}

	// Denied operations announce nothing.
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "erin",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})
	if err := svc.UpdateRole(ctx, "erin", orgID, "alice", permission.RoleMember); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unprivileged role change: got %v, want ErrForbidden", err)
	}
	if len(events.roleUpdated) != 2 {
		t.Errorf("denied operation broadcast: %v", events.roleUpdated)
	}
}

func TestMemberCanLeave(t *testing.T) {
	orgRepo, _, _, svc := newMemberFixture()
	ctx := context.Background()
	orgID := seedOrg(orgRepo, "alice")
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "carol",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})

	// Leaving needs no member:remove grant.
	if err := svc.Remove(ctx, "carol", orgID, "carol"); err != nil {
		t.Fatalf("self removal: %v", err)
	}
	if m, _ := orgRepo.FindMember(ctx, orgID, "carol"); m != nil {
		t.Errorf("membership still present after leave")
	}

	// But removing someone else still does.
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "erin",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})
	orgRepo.AddMember(ctx, &repository.Membership{
		OrganizationID: orgID, UserID: "frank",
		Role: string(permission.RoleMember), Status: repository.MembershipActive,
	})
	if err := svc.Remove(ctx, "erin", orgID, "frank"); !errors.Is(err, ErrForbidden) {
		t.Errorf("member removing peer: got %v, want ErrForbidden", err)
	}
}
