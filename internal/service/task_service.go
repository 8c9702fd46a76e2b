package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/socket"
)

// ============================================
// Task Service
// ============================================

type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *string
	DueDate     *time.Time
}

type TaskService interface {
	Create(ctx context.Context, userID, projectID string, input TaskInput) (*repository.Task, error)
	Get(ctx context.Context, userID, taskID string) (*repository.Task, error)
	ListByProject(ctx context.Context, userID, projectID string) ([]*repository.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]*repository.Task, error)
	Update(ctx context.Context, userID, taskID string, input TaskInput) (*repository.Task, error)
	Assign(ctx context.Context, userID, taskID string, assigneeID *string) (*repository.Task, error)
	Delete(ctx context.Context, userID, taskID string) error

	AddComment(ctx context.Context, userID, taskID, body string) (*repository.Comment, error)
	ListComments(ctx context.Context, userID, taskID string) ([]*repository.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID, body string) (*repository.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID string) error
}

type taskService struct {
	taskRepo      repository.TaskRepository
	commentRepo   repository.CommentRepository
	projectRepo   repository.ProjectRepository
	perms         PermissionService
	notifications NotificationService
	broadcaster   *socket.Broadcaster
}

func NewTaskService(taskRepo repository.TaskRepository, commentRepo repository.CommentRepository, projectRepo repository.ProjectRepository, perms PermissionService, notifications NotificationService, broadcaster *socket.Broadcaster) TaskService {
	return &taskService{
		taskRepo:      taskRepo,
		commentRepo:   commentRepo,
		projectRepo:   projectRepo,
		perms:         perms,
		notifications: notifications,
		broadcaster:   broadcaster,
	}
}

func (s *taskService) Create(ctx context.Context, userID, projectID string, input TaskInput) (*repository.Task, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if err := s.perms.Require(ctx, userID, project.OrganizationID, permission.TaskWrite); err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, ErrInvalidInput
	}
	if input.AssigneeID != nil {
		if err := s.perms.Require(ctx, userID, project.OrganizationID, permission.TaskAssign); err != nil {
			return nil, err
		}
	}

	task := &repository.Task{
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Title:          input.Title,
		Status:         repository.TaskStatusTodo,
		Priority:       repository.TaskPriorityMedium,
		AssigneeID:     input.AssigneeID,
		CreatedBy:      userID,
		DueDate:        input.DueDate,
	}
	if input.Description != "" {
		task.Description = &input.Description
	}
	if input.Status != "" {
		task.Status = input.Status
	}
	if input.Priority != "" {
		task.Priority = input.Priority
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.TaskCreated(task.OrganizationID, task.ProjectID, task.ID, task, userID)
	}
	s.notifyAssignee(ctx, task, userID, "task.assigned", "Task assigned to you", task.Title)

	return task, nil
}

func (s *taskService) Get(ctx context.Context, userID, taskID string) (*repository.Task, error) {
	return s.authorizedTask(ctx, userID, taskID, permission.TaskRead)
}

func (s *taskService) ListByProject(ctx context.Context, userID, projectID string) ([]*repository.Task, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if err := s.perms.Require(ctx, userID, project.OrganizationID, permission.TaskRead); err != nil {
		return nil, err
	}
	return s.taskRepo.FindByProject(ctx, projectID)
}

func (s *taskService) ListByAssignee(ctx context.Context, userID string) ([]*repository.Task, error) {
	// Your own worklist needs no org grant.
	return s.taskRepo.FindByAssignee(ctx, userID)
}

func (s *taskService) Update(ctx context.Context, userID, taskID string, input TaskInput) (*repository.Task, error) {
	task, err := s.authorizedTask(ctx, userID, taskID, permission.TaskWrite)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssigneeID
	if input.Title != "" {
		task.Title = input.Title
	}
	if input.Description != "" {
		task.Description = &input.Description
	}
	if input.Status != "" {
		task.Status = input.Status
	}
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssigneeID != nil {
		if err := s.perms.Require(ctx, userID, task.OrganizationID, permission.TaskAssign); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.TaskUpdated(task.OrganizationID, task.ProjectID, task.ID, task, userID)
	}
	if assigneeChanged(previousAssignee, task.AssigneeID) {
		s.notifyAssignee(ctx, task, userID, "task.assigned", "Task assigned to you", task.Title)
	}

	return task, nil
}

func (s *taskService) Assign(ctx context.Context, userID, taskID string, assigneeID *string) (*repository.Task, error) {
	task, err := s.authorizedTask(ctx, userID, taskID, permission.TaskAssign)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssigneeID
	task.AssigneeID = assigneeID
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.TaskUpdated(task.OrganizationID, task.ProjectID, task.ID, task, userID)
	}
	if assigneeChanged(previousAssignee, task.AssigneeID) {
		s.notifyAssignee(ctx, task, userID, "task.assigned", "Task assigned to you", task.Title)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.authorizedTask(ctx, userID, taskID, permission.TaskDelete)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.TaskDeleted(task.OrganizationID, task.ProjectID, task.ID, userID)
	}
	return nil
}

// ============================================
// Comments
// ============================================

func (s *taskService) AddComment(ctx context.Context, userID, taskID, body string) (*repository.Comment, error) {
	task, err := s.authorizedTask(ctx, userID, taskID, permission.TaskWrite)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, ErrInvalidInput
	}

	comment := &repository.Comment{
		TaskID:   task.ID,
		AuthorID: userID,
		Body:     body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.TaskUpdated(task.OrganizationID, task.ProjectID, task.ID, task, userID)
	}
	if task.AssigneeID != nil && *task.AssigneeID != userID {
		s.notifications.Notify(ctx, *task.AssigneeID, "task.commented",
			"New comment",
			fmt.Sprintf("New comment on %s", task.Title),
			map[string]interface{}{"taskId": task.ID, "projectId": task.ProjectID})
	}
	return comment, nil
}

func (s *taskService) ListComments(ctx context.Context, userID, taskID string) ([]*repository.Comment, error) {
	task, err := s.authorizedTask(ctx, userID, taskID, permission.TaskRead)
	if err != nil {
		return nil, err
	}
	return s.commentRepo.FindByTask(ctx, task.ID)
}

func (s *taskService) UpdateComment(ctx context.Context, userID, commentID, body string) (*repository.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	// Only the author edits a comment.
	if comment.AuthorID != userID {
		return nil, ErrForbidden
	}
	if body == "" {
		return nil, ErrInvalidInput
	}

	comment.Body = body
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

func (s *taskService) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return ErrNotFound
	}
	if comment.AuthorID != userID {
		// Moderators with task:delete may remove any comment on the task.
		task, err := s.taskRepo.FindByID(ctx, comment.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrNotFound
		}
		if err := s.perms.Require(ctx, userID, task.OrganizationID, permission.TaskDelete); err != nil {
			return err
		}
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// authorizedTask loads a task and checks the caller holds p in the owning
// organization.
func (s *taskService) authorizedTask(ctx context.Context, userID, taskID string, p permission.Permission) (*repository.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if err := s.perms.Require(ctx, userID, task.OrganizationID, p); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) notifyAssignee(ctx context.Context, task *repository.Task, actorID, notifType, title, message string) {
	if task.AssigneeID == nil || *task.AssigneeID == actorID {
		return
	}
	s.notifications.Notify(ctx, *task.AssigneeID, notifType, title, message,
		map[string]interface{}{"taskId": task.ID, "projectId": task.ProjectID})
}

func assigneeChanged(before, after *string) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}
