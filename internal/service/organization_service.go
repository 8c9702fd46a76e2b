package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
)

// ============================================
// Organization Service
// ============================================

type OrganizationService interface {
	Create(ctx context.Context, userID, name, description string) (*repository.Organization, error)
	Get(ctx context.Context, userID, orgID string) (*repository.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error)
	Update(ctx context.Context, userID, orgID, name, description string) (*repository.Organization, error)
	Delete(ctx context.Context, userID, orgID string) error
}

type organizationService struct {
	orgRepo repository.OrganizationRepository
	perms   PermissionService
}

func NewOrganizationService(orgRepo repository.OrganizationRepository, perms PermissionService) OrganizationService {
	return &organizationService{orgRepo: orgRepo, perms: perms}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func (s *organizationService) Create(ctx context.Context, userID, name, description string) (*repository.Organization, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}

	org := &repository.Organization{
		Name:    name,
		Slug:    slugify(name),
		OwnerID: userID,
	}
	if description != "" {
		org.Description = &description
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	// The creator becomes the active owner.
	member := &repository.Membership{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           string(permission.RoleOwner),
		Status:         repository.MembershipActive,
	}
	if err := s.orgRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	return org, nil
}

func (s *organizationService) Get(ctx context.Context, userID, orgID string) (*repository.Organization, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationRead); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	return org, nil
}

func (s *organizationService) ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error) {
	return s.orgRepo.FindByUserID(ctx, userID)
}

func (s *organizationService) Update(ctx context.Context, userID, orgID, name, description string) (*repository.Organization, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}

	if name != "" {
		org.Name = name
	}
	if description != "" {
		org.Description = &description
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) Delete(ctx context.Context, userID, orgID string) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationDelete); err != nil {
		return err
	}
	return s.orgRepo.Delete(ctx, orgID)
}
