package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/socket"
)

// ============================================
// Project Service
// ============================================

type ProjectService interface {
	Create(ctx context.Context, userID, orgID, name, key, description string) (*repository.Project, error)
	Get(ctx context.Context, userID, projectID string) (*repository.Project, error)
	ListByOrganization(ctx context.Context, userID, orgID string) ([]*repository.Project, error)
	Update(ctx context.Context, userID, projectID, name, description string, leadID *string) (*repository.Project, error)
	Archive(ctx context.Context, userID, projectID string) (*repository.Project, error)
	Delete(ctx context.Context, userID, projectID string) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
	perms       PermissionService
	broadcaster *socket.Broadcaster
}

func NewProjectService(projectRepo repository.ProjectRepository, perms PermissionService, broadcaster *socket.Broadcaster) ProjectService {
	return &projectService{projectRepo: projectRepo, perms: perms, broadcaster: broadcaster}
}

func (s *projectService) Create(ctx context.Context, userID, orgID, name, key, description string) (*repository.Project, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.ProjectWrite); err != nil {
		return nil, err
	}
	if name == "" || key == "" {
		return nil, ErrInvalidInput
	}

	project := &repository.Project{
		OrganizationID: orgID,
		Name:           name,
		Key:            strings.ToUpper(key),
	}
	if description != "" {
		project.Description = &description
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID string) (*repository.Project, error) {
	return s.authorizedProject(ctx, userID, projectID, permission.ProjectRead)
}

func (s *projectService) ListByOrganization(ctx context.Context, userID, orgID string) ([]*repository.Project, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.ProjectRead); err != nil {
		return nil, err
	}
	return s.projectRepo.FindByOrganization(ctx, orgID)
}

func (s *projectService) Update(ctx context.Context, userID, projectID, name, description string, leadID *string) (*repository.Project, error) {
	project, err := s.authorizedProject(ctx, userID, projectID, permission.ProjectWrite)
	if err != nil {
		return nil, err
	}

	if name != "" {
		project.Name = name
	}
	if description != "" {
		project.Description = &description
	}
	if leadID != nil {
		project.LeadID = leadID
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.ProjectUpdated(project.OrganizationID, project.ID, project, userID)
	}
	return project, nil
}

func (s *projectService) Archive(ctx context.Context, userID, projectID string) (*repository.Project, error) {
	project, err := s.authorizedProject(ctx, userID, projectID, permission.ProjectWrite)
	if err != nil {
		return nil, err
	}

	project.Archived = true
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to archive project: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.ProjectUpdated(project.OrganizationID, project.ID, project, userID)
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, userID, projectID string) error {
	project, err := s.authorizedProject(ctx, userID, projectID, permission.ProjectDelete)
	if err != nil {
		return err
	}
	return s.projectRepo.Delete(ctx, project.ID)
}

// authorizedProject loads a project and checks the caller holds p in its
// organization. The project is looked up first so the permission check runs
// against the org that actually owns it.
func (s *projectService) authorizedProject(ctx context.Context, userID, projectID string, p permission.Permission) (*repository.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if err := s.perms.Require(ctx, userID, project.OrganizationID, p); err != nil {
		return nil, err
	}
	return project, nil
}
