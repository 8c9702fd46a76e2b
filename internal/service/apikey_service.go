package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ============================================
// API Key Service
// ============================================

type APIKeyService interface {
	// Create mints a key and returns the full secret exactly once. Only the
	// bcrypt hash is stored.
	Create(ctx context.Context, userID, orgID, name string) (*repository.APIKey, string, error)
	List(ctx context.Context, userID, orgID string) ([]*repository.APIKey, error)
	Revoke(ctx context.Context, userID, orgID, keyID string) error

	// Verify resolves a presented key to its organization, or ErrUnauthorized.
	Verify(ctx context.Context, presented string) (*repository.APIKey, error)
}

type apiKeyService struct {
	keyRepo repository.APIKeyRepository
	perms   PermissionService
}

func NewAPIKeyService(keyRepo repository.APIKeyRepository, perms PermissionService) APIKeyService {
	return &apiKeyService{keyRepo: keyRepo, perms: perms}
}

const keyPrefixLen = 8

func (s *apiKeyService) Create(ctx context.Context, userID, orgID, name string) (*repository.APIKey, string, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return nil, "", err
	}
	if name == "" {
		return nil, "", ErrInvalidInput
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate key material: %w", err)
	}
	secret := "ak_" + hex.EncodeToString(raw)
	prefix := secret[:len("ak_")+keyPrefixLen]

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash key: %w", err)
	}

	key := &repository.APIKey{
		OrganizationID: orgID,
		Name:           name,
		Prefix:         prefix,
		SecretHash:     string(hash),
		CreatedBy:      userID,
	}
	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("failed to store key: %w", err)
	}

	return key, secret, nil
}

func (s *apiKeyService) List(ctx context.Context, userID, orgID string) ([]*repository.APIKey, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationRead); err != nil {
		return nil, err
	}
	return s.keyRepo.FindByOrganization(ctx, orgID)
}

func (s *apiKeyService) Revoke(ctx context.Context, userID, orgID, keyID string) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return err
	}

	key, err := s.keyRepo.FindByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key == nil || key.OrganizationID != orgID {
		return ErrNotFound
	}
	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *apiKeyService) Verify(ctx context.Context, presented string) (*repository.APIKey, error) {
	if len(presented) < len("ak_")+keyPrefixLen {
		return nil, ErrUnauthorized
	}

	key, err := s.keyRepo.FindByPrefix(ctx, presented[:len("ak_")+keyPrefixLen])
	if err != nil {
		return nil, err
	}
	if key == nil || key.RevokedAt != nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(presented)); err != nil {
		return nil, ErrUnauthorized
	}

	s.keyRepo.TouchLastUsed(ctx, key.ID)
	return key, nil
}
