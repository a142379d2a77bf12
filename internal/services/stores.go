package services

import (
	"context"
	"time"

	"github.com/donenme/donenme-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store interfaces consumed by the services. The repository package
// provides the MongoDB implementations; tests inject in-memory fakes.

type DonationStore interface {
	CreateDonation(ctx context.Context, donation *models.Donation) (*models.Donation, error)
	GetDonationByID(ctx context.Context, id primitive.ObjectID) (*models.Donation, error)
	GetDonationsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Donation, error)
	FindAvailable(ctx context.Context) ([]models.Donation, error)
	FindByDonor(ctx context.Context, donorID primitive.ObjectID) ([]models.Donation, error)
	FindExpiring(ctx context.Context, until time.Time) ([]models.Donation, error)
	ReplaceDonation(ctx context.Context, donation *models.Donation) error
}

type RequestStore interface {
	CreateRequest(ctx context.Context, request *models.Request) (*models.Request, error)
	GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error)
	FindByDonation(ctx context.Context, donationID primitive.ObjectID, status string) ([]models.Request, error)
	FindByRecipient(ctx context.Context, recipientID primitive.ObjectID) ([]models.Request, error)
	FindByStatus(ctx context.Context, status string) ([]models.Request, error)
	CountByDonationAndStatus(ctx context.Context, donationID primitive.ObjectID, status string) (int64, error)
	CommitApproval(ctx context.Context, donation *models.Donation, request *models.Request) error
	ReplaceRequest(ctx context.Context, request *models.Request) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id primitive.ObjectID) error
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByContact(ctx context.Context, contact string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
}
