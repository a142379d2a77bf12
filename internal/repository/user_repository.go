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
)

// UserRepository handles database operations related to users.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, apperr.Storage("failed to create user", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logrus.Error("Failed to cast inserted ID to ObjectID")
		return nil, apperr.Storage("failed to create user", nil)
	}
	user.ID = insertedID

	logrus.WithField("userID", user.ID.Hex()).Info("User inserted successfully")
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("failed to get user", err)
	}
	return &user, nil
}

// GetUserByContact retrieves a user by their contact (login identifier).
func (r *UserRepository) GetUserByContact(ctx context.Context, contact string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"contact": contact}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("failed to get user by contact", err)
	}
	return &user, nil
}

// UpdateUser writes the full user document back.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		logrus.WithError(err).WithField("userID", user.ID.Hex()).Error("Failed to update user")
		return nil, apperr.Storage("failed to update user", err)
	}
	if result.MatchedCount == 0 {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// GetUsersByIDs fetches user details for a list of ObjectIDs in a single
// query. Used to enrich listings without an N+1 lookup.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("failed to fetch users by IDs", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Storage("failed to decode users", err)
	}
	return users, nil
}
