package repository

import (
	"context"
	"errors"
	"time"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotification inserts a new notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) error {
	notif.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return apperr.Storage("failed to create notification", err)
	}
	return nil
}

// GetUserNotifications returns all notifications for a user, newest first
func (r *NotificationRepository) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("failed to fetch notifications", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, apperr.Storage("failed to decode notifications", err)
	}
	return notifications, nil
}

// GetNotificationByID fetches a single notification
func (r *NotificationRepository) GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notif models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("notification not found")
		}
		return nil, apperr.Storage("failed to get notification", err)
	}
	return &notif, nil
}

// MarkAsRead sets notification's Read to true
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return apperr.Storage("failed to mark notification as read", err)
	}
	return nil
}

// CountUnread returns how many notifications the user has not read yet
func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"user_id": userID, "read": false}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, apperr.Storage("failed to count unread notifications", err)
	}
	return count, nil
}
