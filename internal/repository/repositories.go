package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	// Core repositories (pgxpool)
	UserRepo         UserRepository
	OrganizationRepo OrganizationRepository
	ProjectRepo      ProjectRepository
	NotificationRepo NotificationRepository
	APIKeyRepo       APIKeyRepository

	// Work-item repositories (sqlx)
	TaskRepo    TaskRepository
	CommentRepo CommentRepository
	InvoiceRepo InvoiceRepository
}

func NewRepositories(pool *pgxpool.Pool, db *sqlx.DB) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(pool),
		OrganizationRepo: NewOrganizationRepository(pool),
		ProjectRepo:      NewProjectRepository(pool),
		NotificationRepo: NewNotificationRepository(pool),
		APIKeyRepo:       NewAPIKeyRepository(pool),

		TaskRepo:    NewTaskRepository(db),
		CommentRepo: NewCommentRepository(db),
		InvoiceRepo: NewInvoiceRepository(db),
	}
}
