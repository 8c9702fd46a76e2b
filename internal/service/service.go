package service

import (
	"errors"

	"github.com/aurora-ops/aurora-backend/internal/config"
	"github.com/aurora-ops/aurora-backend/internal/db"
	"github.com/aurora-ops/aurora-backend/internal/jobs"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/socket"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrLastOwner          = errors.New("cannot remove or demote the last owner")
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	Permission   PermissionService
	Organization OrganizationService
	Member       MemberService
	Project      ProjectService
	Task         TaskService
	Notification NotificationService
	APIKey       APIKeyService
	Invoice      InvoiceService
	Broadcaster  *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Redis       *db.RedisDB // optional, nil disables the membership cache
	Jobs        *jobs.Queue
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	permissionSvc := NewPermissionService(deps.Repos.OrganizationRepo, deps.Redis)
	notificationSvc := NewNotificationService(deps.Repos.NotificationRepo, deps.Jobs, deps.Broadcaster)

	return &Services{
		Auth:         NewAuthService(deps.Config, deps.Repos.UserRepo),
		Permission:   permissionSvc,
		Organization: NewOrganizationService(deps.Repos.OrganizationRepo, permissionSvc),
		Member:       NewMemberService(deps.Repos.OrganizationRepo, deps.Repos.UserRepo, permissionSvc, notificationSvc, deps.Broadcaster),
		Project:      NewProjectService(deps.Repos.ProjectRepo, permissionSvc, deps.Broadcaster),
		Task:         NewTaskService(deps.Repos.TaskRepo, deps.Repos.CommentRepo, deps.Repos.ProjectRepo, permissionSvc, notificationSvc, deps.Broadcaster),
		Notification: notificationSvc,
		APIKey:       NewAPIKeyService(deps.Repos.APIKeyRepo, permissionSvc),
		Invoice:      NewInvoiceService(deps.Repos.InvoiceRepo, permissionSvc),
		Broadcaster:  deps.Broadcaster,
	}
}
