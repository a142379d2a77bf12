package services

import (
	"context"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	repo NotificationStore
}

func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notify records a notification for a user. It is fire-and-forget: a
// persistence failure is logged and swallowed so it can never unwind the
// business operation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, title, message string, referenceID *primitive.ObjectID, eventType string) {
	notif := &models.Notification{
		UserID:      userID,
		Title:       title,
		Message:     message,
		Read:        false,
		ReferenceID: referenceID,
		EventType:   eventType,
	}
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID.Hex(),
			"event_type": eventType,
		}).Warn("Failed to persist notification")
	}
}

// GetUserNotifications returns all notifications for a user, newest first.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.repo.GetUserNotifications(ctx, userID)
}

// MarkNotificationAsRead flips the read flag. Only the owning user may do
// this; marking an already-read notification is a no-op, not an error.
func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, userID, notifID primitive.ObjectID) error {
	notif, err := s.repo.GetNotificationByID(ctx, notifID)
	if err != nil {
		return err
	}
	if notif.UserID != userID {
		return apperr.Authorization("you cannot modify this notification")
	}
	return s.repo.MarkAsRead(ctx, notifID)
}

// CountUnread returns the number of unread notifications for a user.
func (s *NotificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
