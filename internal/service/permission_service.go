package service

import (
	"context"
	"log"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/db"
	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
)

const membershipCacheTTL = 5 * time.Minute

// PermissionService is the single authority for what a user may do inside an
// organization. The REST middleware and the socket gateway both resolve
// through it; client-side permission hints are advisory only.
type PermissionService interface {
	// Resolve returns the caller's permission set in an organization. The
	// empty set comes back for missing, invited or suspended memberships.
	// Implements socket.MembershipResolver.
	Resolve(ctx context.Context, userID, organizationID string) (permission.Set, error)

	// Require returns ErrForbidden unless the caller holds p.
	Require(ctx context.Context, userID, orgID string, p permission.Permission) error

	// RequireAny returns ErrForbidden unless the caller holds at least one
	// of perms.
	RequireAny(ctx context.Context, userID, orgID string, perms ...permission.Permission) error

	// RequireAll returns ErrForbidden unless the caller holds every one of
	// perms.
	RequireAll(ctx context.Context, userID, orgID string, perms ...permission.Permission) error

	// Invalidate drops the cached membership for (user, org) after a role or
	// status change.
	Invalidate(ctx context.Context, userID, orgID string)
}

// cachedMembership is what lands in redis. Status is cached too so a
// suspended membership is denied without a database round trip.
type cachedMembership struct {
	Role   string `json:"role"`
	Status string `json:"status"`
	Found  bool   `json:"found"`
}

type permissionService struct {
	orgRepo repository.OrganizationRepository
	cache   *db.RedisDB
}

func NewPermissionService(orgRepo repository.OrganizationRepository, cache *db.RedisDB) PermissionService {
	return &permissionService{orgRepo: orgRepo, cache: cache}
}

func (s *permissionService) Resolve(ctx context.Context, userID, orgID string) (permission.Set, error) {
	if userID == "" || orgID == "" {
		return nil, nil
	}

	if s.cache != nil {
		var cached cachedMembership
		hit, err := s.cache.GetMembership(ctx, orgID, userID, &cached)
		if err != nil {
			log.Printf("[Permission] cache read failed: %v", err)
		} else if hit {
			return setFromMembership(cached.Found, cached.Role, cached.Status), nil
		}
	}

	member, err := s.orgRepo.FindMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	cached := cachedMembership{Found: member != nil}
	if member != nil {
		cached.Role = member.Role
		cached.Status = member.Status
	}
	if s.cache != nil {
		if err := s.cache.SetMembership(ctx, orgID, userID, cached, membershipCacheTTL); err != nil {
			log.Printf("[Permission] cache write failed: %v", err)
		}
	}
	return setFromMembership(cached.Found, cached.Role, cached.Status), nil
}

func (s *permissionService) Require(ctx context.Context, userID, orgID string, p permission.Permission) error {
	set, err := s.Resolve(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !set.Has(p) {
		return ErrForbidden
	}
	return nil
}

func (s *permissionService) RequireAny(ctx context.Context, userID, orgID string, perms ...permission.Permission) error {
	set, err := s.Resolve(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !set.HasAny(perms...) {
		return ErrForbidden
	}
	return nil
}

func (s *permissionService) RequireAll(ctx context.Context, userID, orgID string, perms ...permission.Permission) error {
	set, err := s.Resolve(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !set.HasAll(perms...) {
		return ErrForbidden
	}
	return nil
}

func (s *permissionService) Invalidate(ctx context.Context, userID, orgID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteMembership(ctx, orgID, userID); err != nil {
		log.Printf("[Permission] cache invalidate failed: %v", err)
	}
}

// setFromMembership maps a membership row to a permission set. Only active
// memberships grant anything.
func setFromMembership(found bool, role, status string) permission.Set {
	if !found || status != repository.MembershipActive {
		return nil
	}
	return permission.Of(permission.Role(role))
}
