package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Task status values
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Task priority values
const (
	TaskPriorityUrgent = "urgent"
	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

type Task struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	ProjectID      string     `db:"project_id" json:"projectId"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Status         string     `db:"status" json:"status"`
	Priority       string     `db:"priority" json:"priority"`
	AssigneeID     *string    `db:"assignee_id" json:"assigneeId,omitempty"`
	CreatedBy      string     `db:"created_by" json:"createdBy"`
	DueDate        *time.Time `db:"due_date" json:"dueDate,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByProject(ctx context.Context, projectID string) ([]*Task, error)
	FindByAssignee(ctx context.Context, userID string) ([]*Task, error)
	FindDueSoon(ctx context.Context, within time.Duration) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
}

type sqlxTaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &sqlxTaskRepository{db: db}
}

func (r *sqlxTaskRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (organization_id, project_id, title, description, status, priority, assignee_id, created_by, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		task.OrganizationID, task.ProjectID, task.Title, task.Description,
		task.Status, task.Priority, task.AssigneeID, task.CreatedBy, task.DueDate,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *sqlxTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	task := &Task{}
	err := r.db.GetContext(ctx, task, `SELECT * FROM tasks WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *sqlxTaskRepository) FindByProject(ctx context.Context, projectID string) ([]*Task, error) {
	var tasks []*Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT * FROM tasks WHERE project_id = $1 ORDER BY created_at`, projectID)
	return tasks, err
}

func (r *sqlxTaskRepository) FindByAssignee(ctx context.Context, userID string) ([]*Task, error) {
	var tasks []*Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT * FROM tasks WHERE assignee_id = $1 ORDER BY created_at`, userID)
	return tasks, err
}

func (r *sqlxTaskRepository) FindDueSoon(ctx context.Context, within time.Duration) ([]*Task, error) {
	var tasks []*Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT * FROM tasks
		 WHERE due_date IS NOT NULL AND status != $1
		   AND due_date BETWEEN NOW() AND NOW() + make_interval(secs => $2)
		 ORDER BY due_date`,
		TaskStatusDone, within.Seconds())
	return tasks, err
}

func (r *sqlxTaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    assignee_id = $6, due_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		task.AssigneeID, task.DueDate,
	).Scan(&task.UpdatedAt)
}

func (r *sqlxTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}
