package service

import (
	"context"
	"log"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/jobs"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/socket"
)

// ============================================
// Notification Service
// ============================================

type NotificationService interface {
	// Notify records a notification and pushes it to the recipient's live
	// connections. Delivery is best effort; persistence happens on the job
	// queue so callers never block on it.
	Notify(ctx context.Context, userID, notifType, title, message string, data map[string]interface{})

	List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAll(ctx context.Context, userID string) error

	// Pending returns unread notifications plus the unread count for the
	// initial push on a fresh socket connection. Implements
	// socket.NotificationLoader.
	Pending(ctx context.Context, userID string) ([]socket.NotificationItem, int, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	queue       *jobs.Queue
	broadcaster *socket.Broadcaster
}

func NewNotificationService(repo repository.NotificationRepository, queue *jobs.Queue, broadcaster *socket.Broadcaster) NotificationService {
	return &notificationService{repo: repo, queue: queue, broadcaster: broadcaster}
}

func (s *notificationService) Notify(ctx context.Context, userID, notifType, title, message string, data map[string]interface{}) {
	if userID == "" {
		return
	}

	notification := &repository.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
	}

	persist := func(jobCtx context.Context) {
		if err := s.repo.Create(jobCtx, notification); err != nil {
			log.Printf("[Notification] persist failed for user %s: %v", userID, err)
			return
		}
		if s.broadcaster != nil {
			s.broadcaster.NotificationNew(userID, toNotificationItem(notification))
		}
	}

	if s.queue == nil || !s.queue.Enqueue(persist) {
		// Queue full or absent: do the work inline rather than lose it.
		persist(ctx)
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	return s.repo.FindByUserID(ctx, userID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	notification, err := s.ownedNotification(ctx, userID, notificationID)
	if err != nil {
		return err
	}

	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return err
	}

	if s.broadcaster != nil {
		notification.Read = true
		s.broadcaster.NotificationRead(userID, toNotificationItem(notification))
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, notificationID string) error {
	if _, err := s.ownedNotification(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, notificationID)
}

func (s *notificationService) DeleteAll(ctx context.Context, userID string) error {
	return s.repo.DeleteAll(ctx, userID)
}

func (s *notificationService) Pending(ctx context.Context, userID string) ([]socket.NotificationItem, int, error) {
	notifications, err := s.repo.FindByUserID(ctx, userID, true)
	if err != nil {
		return nil, 0, err
	}
	_, unread, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	items := make([]socket.NotificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, toNotificationItem(n))
	}
	return items, unread, nil
}

// ownedNotification loads a notification and checks it belongs to userID.
// Someone else's notification reads as not found, never as forbidden.
func (s *notificationService) ownedNotification(ctx context.Context, userID, notificationID string) (*repository.Notification, error) {
	notification, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if notification == nil || notification.UserID != userID {
		return nil, ErrNotFound
	}
	return notification, nil
}

func toNotificationItem(n *repository.Notification) socket.NotificationItem {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return socket.NotificationItem{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: created,
	}
}
