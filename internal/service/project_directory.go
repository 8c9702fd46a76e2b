package service

import (
	"context"

	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/socket"
)

// projectDirectory resolves which organization owns a project. The realtime
// gateway uses it to run the project-room guard against the owning
// organization instead of anything the client claims.
type projectDirectory struct {
	projects repository.ProjectRepository
}

// NewProjectDirectory creates a socket.ProjectResolver over the project store.
func NewProjectDirectory(projects repository.ProjectRepository) socket.ProjectResolver {
	return &projectDirectory{projects: projects}
}

func (d *projectDirectory) OrganizationID(ctx context.Context, projectID string) (string, error) {
	project, err := d.projects.FindByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", nil
	}
	return project.OrganizationID, nil
}
