package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/helpers"
	"github.com/placeintern/backend/internal/pkg/websocket"
)

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// Pusher delivers realtime messages to connected users
type Pusher interface {
	SendToUser(userID int64, msg websocket.Message)
}

// NotificationService stores notifications and pushes them to open connections
type NotificationService struct {
	store  NotificationStore
	pusher Pusher
	mailer Mailer
	logger zerolog.Logger
	now    func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store NotificationStore, pusher Pusher, mailer Mailer, logger zerolog.Logger) *NotificationService {
	return &NotificationService{store: store, pusher: pusher, mailer: mailer, logger: logger, now: time.Now}
}

// Notify persists a notification for userID and pushes it to the user's connections
func (s *NotificationService) Notify(ctx context.Context, userID int64, title, body string, category models.NotificationCategory, link string) (*models.Notification, error) {
	if category == "" {
		category = models.NotificationGeneral
	}
	n := &models.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Category: category,
		Link:     helpers.NilIfEmpty(link),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.pusher != nil {
		at := s.now()
		s.pusher.SendToUser(userID, websocket.Message{Type: websocket.TypeNotification, Payload: n, Timestamp: at})
		if unread, err := s.store.UnreadCount(ctx, userID); err == nil {
			s.pusher.SendToUser(userID, websocket.Message{Type: websocket.TypeUnreadCount, Payload: unread, Timestamp: at})
		}
	}
	return n, nil
}

// NotifyUser sends notice to user and queues its email when a template is set.
// Errors are logged only; callers have already committed the change being announced.
func (s *NotificationService) NotifyUser(ctx context.Context, user *models.User, notice Notice) {
	if user == nil {
		return
	}
	if _, err := s.Notify(ctx, user.ID, notice.Title, notice.Body, notice.Category, notice.Link); err != nil {
		s.logger.Error().Err(err).Int64("userId", user.ID).Str("title", notice.Title).Msg("Failed to notify user")
	}
	if notice.EmailTemplate == "" || s.mailer == nil || user.Email == "" {
		return
	}
	if err := s.mailer.Send(ctx, user, notice.EmailTemplate, notice.EmailData); err != nil {
		s.logger.Error().Err(err).Int64("userId", user.ID).Str("template", notice.EmailTemplate).Msg("Failed to queue email")
	}
}

// List returns a page of the user's notifications
func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]models.Notification, int64, error) {
	return s.store.List(ctx, userID, unreadOnly, page, size)
}

// MarkRead marks one notification of the user as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.store.MarkRead(ctx, userID, id); err != nil {
		return err
	}
	s.pushUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.pushUnread(ctx, userID)
	return n, nil
}

// UnreadCount returns the number of unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *NotificationService) pushUnread(ctx context.Context, userID int64) {
	if s.pusher == nil {
		return
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("userId", userID).Msg("Failed to count unread notifications")
		return
	}
	s.pusher.SendToUser(userID, websocket.Message{Type: websocket.TypeUnreadCount, Payload: unread, Timestamp: s.now()})
}
