package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type Comment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"taskId"`
	AuthorID  string    `db:"author_id" json:"authorId"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	FindByTask(ctx context.Context, taskID string) ([]*Comment, error)
	Update(ctx context.Context, comment *Comment) error
	Delete(ctx context.Context, id string) error
}

type sqlxCommentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &sqlxCommentRepository{db: db}
}

func (r *sqlxCommentRepository) Create(ctx context.Context, comment *Comment) error {
	query := `
		INSERT INTO task_comments (task_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, comment.TaskID, comment.AuthorID, comment.Body).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
}

func (r *sqlxCommentRepository) FindByID(ctx context.Context, id string) (*Comment, error) {
	comment := &Comment{}
	err := r.db.GetContext(ctx, comment, `SELECT * FROM task_comments WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *sqlxCommentRepository) FindByTask(ctx context.Context, taskID string) ([]*Comment, error) {
	var comments []*Comment
	err := r.db.SelectContext(ctx, &comments,
		`SELECT * FROM task_comments WHERE task_id = $1 ORDER BY created_at`, taskID)
	return comments, err
}

func (r *sqlxCommentRepository) Update(ctx context.Context, comment *Comment) error {
	query := `
		UPDATE task_comments SET body = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRowContext(ctx, query, comment.ID, comment.Body).Scan(&comment.UpdatedAt)
}

func (r *sqlxCommentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_comments WHERE id = $1`, id)
	return err
}
