package cron

import (
	"context"
	"log"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/config"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/service"
	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled maintenance tasks
type Scheduler struct {
	cron          *cron.Cron
	cfg           *config.Config
	taskRepo      repository.TaskRepository
	userRepo      repository.UserRepository
	orgRepo       repository.OrganizationRepository
	notifRepo     repository.NotificationRepository
	notifications service.NotificationService
}

// NewScheduler creates a scheduler with direct repository access
func NewScheduler(cfg *config.Config, repos *repository.Repositories, notifications service.NotificationService) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		cfg:           cfg,
		taskRepo:      repos.TaskRepo,
		userRepo:      repos.UserRepo,
		orgRepo:       repos.OrganizationRepo,
		notifRepo:     repos.NotificationRepo,
		notifications: notifications,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() {
	// Run every day at 9 AM - Due date reminders
	s.cron.AddFunc("0 9 * * *", func() {
		log.Println("[Cron] Running due date reminder check...")
		s.checkDueDateReminders()
	})

	// Clean up old read notifications - Run every Sunday at midnight
	s.cron.AddFunc("0 0 * * 0", func() {
		log.Println("[Cron] Running notification cleanup...")
		s.cleanupOldNotifications()
	})

	// Drop invitations nobody accepted - Run every day at 3 AM
	s.cron.AddFunc("0 3 * * *", func() {
		log.Println("[Cron] Running stale invite cleanup...")
		s.cleanupStaleInvites()
	})

	// Purge expired refresh tokens - Run every hour
	s.cron.AddFunc("0 * * * *", func() {
		log.Println("[Cron] Running refresh token cleanup...")
		s.cleanupExpiredRefreshTokens()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// checkDueDateReminders notifies assignees of tasks due within 24 hours.
func (s *Scheduler) checkDueDateReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tasks, err := s.taskRepo.FindDueSoon(ctx, 24*time.Hour)
	if err != nil {
		log.Printf("[Cron] failed to load due tasks: %v", err)
		return
	}

	for _, task := range tasks {
		if task.AssigneeID == nil {
			continue
		}
		s.notifications.Notify(ctx, *task.AssigneeID, "task.due_soon",
			"Task due soon", task.Title,
			map[string]interface{}{"taskId": task.ID, "projectId": task.ProjectID})
	}

	if len(tasks) > 0 {
		log.Printf("[Cron] sent %d due date reminders", len(tasks))
	}
}

func (s *Scheduler) cleanupOldNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.cfg.NotificationRetentionDays)
	deleted, err := s.notifRepo.DeleteOlderThan(ctx, cutoff, true)
	if err != nil {
		log.Printf("[Cron] notification cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Cron] deleted %d old notifications", deleted)
	}
}

func (s *Scheduler) cleanupStaleInvites() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.cfg.StaleInviteDays)
	deleted, err := s.orgRepo.DeleteStaleInvites(ctx, cutoff)
	if err != nil {
		log.Printf("[Cron] stale invite cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Cron] deleted %d stale invites", deleted)
	}
}

func (s *Scheduler) cleanupExpiredRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := s.userRepo.DeleteExpiredRefreshTokens(ctx, time.Now())
	if err != nil {
		log.Printf("[Cron] refresh token cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Cron] deleted %d expired refresh tokens", deleted)
	}
}
