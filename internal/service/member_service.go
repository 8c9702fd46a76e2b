package service

import (
	"context"
	"fmt"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
)

// ============================================
// Member Service
// ============================================

type MemberService interface {
	List(ctx context.Context, userID, orgID string) ([]*repository.Membership, error)
	Invite(ctx context.Context, userID, orgID, email string, role permission.Role) (*repository.Membership, error)
	AcceptInvite(ctx context.Context, userID, orgID string) error
	UpdateRole(ctx context.Context, userID, orgID, targetUserID string, role permission.Role) error
	Suspend(ctx context.Context, userID, orgID, targetUserID string) error
	Reactivate(ctx context.Context, userID, orgID, targetUserID string) error
	Remove(ctx context.Context, userID, orgID, targetUserID string) error
}

// MemberBroadcaster is the slice of the realtime gateway the member service
// pushes lifecycle events through. *socket.Broadcaster satisfies it.
type MemberBroadcaster interface {
	MemberAdded(orgID, userID, role, actorID string)
	MemberRemoved(orgID, userID, actorID string)
	MemberRoleUpdated(orgID, userID, role, status, actorID string)
}

type memberService struct {
	orgRepo       repository.OrganizationRepository
	userRepo      repository.UserRepository
	perms         PermissionService
	notifications NotificationService
	broadcaster   MemberBroadcaster
}

func NewMemberService(orgRepo repository.OrganizationRepository, userRepo repository.UserRepository, perms PermissionService, notifications NotificationService, broadcaster MemberBroadcaster) MemberService {
	return &memberService{
		orgRepo:       orgRepo,
		userRepo:      userRepo,
		perms:         perms,
		notifications: notifications,
		broadcaster:   broadcaster,
	}
}

func (s *memberService) List(ctx context.Context, userID, orgID string) ([]*repository.Membership, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.MemberRead); err != nil {
		return nil, err
	}
	return s.orgRepo.FindMembers(ctx, orgID)
}

func (s *memberService) Invite(ctx context.Context, userID, orgID, email string, role permission.Role) (*repository.Membership, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.MemberInvite); err != nil {
		return nil, err
	}
	if !permission.IsValidRole(role) || role == permission.RoleOwner {
		// Ownership is transferred through a role update, never granted on
		// invite.
		return nil, ErrInvalidInput
	}

	invitee, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.orgRepo.FindMember(ctx, orgID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	member := &repository.Membership{
		OrganizationID: orgID,
		UserID:         invitee.ID,
		Role:           string(role),
		Status:         repository.MembershipInvited,
		InvitedBy:      &userID,
	}
	if err := s.orgRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	org, _ := s.orgRepo.FindByID(ctx, orgID)
	orgName := orgID
	if org != nil {
		orgName = org.Name
	}
	s.notifications.Notify(ctx, invitee.ID, "member.invited",
		"You have been invited",
		fmt.Sprintf("You were invited to join %s as %s", orgName, role),
		map[string]interface{}{"organizationId": orgID, "role": string(role)})

	return member, nil
}

func (s *memberService) AcceptInvite(ctx context.Context, userID, orgID string) error {
	member, err := s.orgRepo.FindMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotFound
	}
	if member.Status != repository.MembershipInvited {
		return ErrConflict
	}

	if err := s.orgRepo.UpdateMemberStatus(ctx, orgID, userID, repository.MembershipActive); err != nil {
		return err
	}
	s.perms.Invalidate(ctx, userID, orgID)
	if s.broadcaster != nil {
		s.broadcaster.MemberAdded(orgID, userID, member.Role, userID)
	}
	return nil
}

func (s *memberService) UpdateRole(ctx context.Context, userID, orgID, targetUserID string, role permission.Role) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.MemberUpdateRole); err != nil {
		return err
	}
	if !permission.IsValidRole(role) {
		return ErrInvalidInput
	}

	target, err := s.orgRepo.FindMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	if target.Role == string(permission.RoleOwner) && role != permission.RoleOwner {
		if err := s.ensureNotLastOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.orgRepo.UpdateMemberRole(ctx, orgID, targetUserID, string(role)); err != nil {
		return err
	}
	s.perms.Invalidate(ctx, targetUserID, orgID)
	if s.broadcaster != nil {
		s.broadcaster.MemberRoleUpdated(orgID, targetUserID, string(role), target.Status, userID)
	}

	s.notifications.Notify(ctx, targetUserID, "member.role_changed",
		"Your role changed",
		fmt.Sprintf("Your role is now %s", role),
		map[string]interface{}{"organizationId": orgID, "role": string(role)})
	return nil
}

func (s *memberService) Suspend(ctx context.Context, userID, orgID, targetUserID string) error {
	return s.setStatus(ctx, userID, orgID, targetUserID, repository.MembershipSuspended)
}

func (s *memberService) Reactivate(ctx context.Context, userID, orgID, targetUserID string) error {
	return s.setStatus(ctx, userID, orgID, targetUserID, repository.MembershipActive)
}

func (s *memberService) setStatus(ctx context.Context, userID, orgID, targetUserID, status string) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.MemberUpdateRole); err != nil {
		return err
	}

	target, err := s.orgRepo.FindMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if status == repository.MembershipSuspended && target.Role == string(permission.RoleOwner) {
		if err := s.ensureNotLastOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.orgRepo.UpdateMemberStatus(ctx, orgID, targetUserID, status); err != nil {
		return err
	}
	s.perms.Invalidate(ctx, targetUserID, orgID)
	if s.broadcaster != nil {
		s.broadcaster.MemberRoleUpdated(orgID, targetUserID, target.Role, status, userID)
	}
	return nil
}

func (s *memberService) Remove(ctx context.Context, userID, orgID, targetUserID string) error {
	// Leaving the organization yourself needs no grant.
	if userID != targetUserID {
		if err := s.perms.Require(ctx, userID, orgID, permission.MemberRemove); err != nil {
			return err
		}
	}

	target, err := s.orgRepo.FindMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Role == string(permission.RoleOwner) {
		if err := s.ensureNotLastOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.orgRepo.RemoveMember(ctx, orgID, targetUserID); err != nil {
		return err
	}
	s.perms.Invalidate(ctx, targetUserID, orgID)
	if s.broadcaster != nil {
		s.broadcaster.MemberRemoved(orgID, targetUserID, userID)
	}
	return nil
}

// ensureNotLastOwner guards the invariant that every organization keeps at
// least one active owner.
func (s *memberService) ensureNotLastOwner(ctx context.Context, orgID string) error {
	owners, err := s.orgRepo.CountMembersByRole(ctx, orgID, string(permission.RoleOwner))
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}
