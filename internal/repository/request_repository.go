package repository

import (
	"context"
	"errors"
	"time"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RequestRepository handles database operations related to requests.
// It shares the documents collection with DonationRepository; an approval
// touches both document kinds through one repository.
type RequestRepository struct {
	collection *mongo.Collection
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{
		collection: db.Collection(documentsCollection),
	}
}

// CreateRequest inserts a new request document with submitted status.
func (r *RequestRepository) CreateRequest(ctx context.Context, request *models.Request) (*models.Request, error) {
	request.DocType = models.DocTypeRequest
	request.Status = models.RequestStatusSubmitted
	request.Rev = 1
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt

	result, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert request")
		return nil, apperr.Storage("failed to create request", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted request ID")
		return nil, apperr.Storage("failed to create request", nil)
	}
	request.ID = insertedID

	logger.Log.WithField("request_id", request.ID.Hex()).Info("Request created successfully")
	return request, nil
}

// GetRequestByID fetches a request by its ID.
func (r *RequestRepository) GetRequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error) {
	var request models.Request

	filter := bson.M{"_id": id, "doc_type": models.DocTypeRequest}
	err := r.collection.FindOne(ctx, filter).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("request not found")
		}
		logger.Log.WithError(err).WithField("request_id", id.Hex()).Error("Failed to find request by ID")
		return nil, apperr.Storage("failed to get request", err)
	}

	return &request, nil
}

// FindByDonation returns requests against a donation filtered by status.
func (r *RequestRepository) FindByDonation(ctx context.Context, donationID primitive.ObjectID, status string) ([]models.Request, error) {
	filter := bson.M{
		"doc_type":    models.DocTypeRequest,
		"donation_id": donationID,
		"status":      status,
	}
	return r.findRequests(ctx, filter)
}

// FindByRecipient returns all requests submitted by the recipient,
// newest first.
func (r *RequestRepository) FindByRecipient(ctx context.Context, recipientID primitive.ObjectID) ([]models.Request, error) {
	filter := bson.M{
		"doc_type":     models.DocTypeRequest,
		"recipient_id": recipientID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch requests")
		return nil, apperr.Storage("failed to fetch requests", err)
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, apperr.Storage("failed to decode requests", err)
	}
	return requests, nil
}

// FindByStatus returns all requests in the given status. Used by the
// meetup reminder scan to pick up accepted requests.
func (r *RequestRepository) FindByStatus(ctx context.Context, status string) ([]models.Request, error) {
	filter := bson.M{
		"doc_type": models.DocTypeRequest,
		"status":   status,
	}
	return r.findRequests(ctx, filter)
}

// CountByDonationAndStatus counts requests against a donation in a given
// status. Used to block edits once fulfillment has begun.
func (r *RequestRepository) CountByDonationAndStatus(ctx context.Context, donationID primitive.ObjectID, status string) (int64, error) {
	filter := bson.M{
		"doc_type":    models.DocTypeRequest,
		"donation_id": donationID,
		"status":      status,
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to count requests")
		return 0, apperr.Storage("failed to count requests", err)
	}
	return count, nil
}

// CommitApproval writes the decremented donation and the accepted request
// in two rev-guarded steps. The stock decrement lands first; if it misses
// its version guard nothing has been written and the caller retries. If the
// request write then misses its guard the decrement is reverted, so stock
// is never held by a request that was not accepted.
func (r *RequestRepository) CommitApproval(ctx context.Context, donation *models.Donation, request *models.Request) error {
	now := time.Now()

	newDonation := *donation
	newDonation.Rev = donation.Rev + 1
	newDonation.UpdatedAt = now

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": donation.ID, "rev": donation.Rev}, &newDonation)
	if err != nil {
		logger.Log.WithError(err).WithField("donation_id", donation.ID.Hex()).Error("Failed to commit stock decrement")
		return apperr.Storage("failed to commit approval", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	newRequest := *request
	newRequest.Rev = request.Rev + 1
	newRequest.UpdatedAt = now

	result, err = r.collection.ReplaceOne(ctx, bson.M{"_id": request.ID, "rev": request.Rev}, &newRequest)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", request.ID.Hex()).Error("Failed to commit request acceptance")
		r.revertStock(ctx, donation, request, newDonation.Rev)
		return apperr.Storage("failed to commit approval", err)
	}
	if result.MatchedCount == 0 {
		r.revertStock(ctx, donation, request, newDonation.Rev)
		return ErrVersionConflict
	}

	donation.Rev = newDonation.Rev
	donation.UpdatedAt = now
	request.Rev = newRequest.Rev
	request.UpdatedAt = now

	logger.Log.WithFields(map[string]interface{}{
		"donation_id": donation.ID.Hex(),
		"request_id":  request.ID.Hex(),
	}).Info("Approval committed")
	return nil
}

// revertStock adds the requested quantities back to the donation after an
// aborted approval. The donation is still at heldRev, which only this
// caller can hold; a failure here leaves the decrement orphaned and is
// loud in the logs.
func (r *RequestRepository) revertStock(ctx context.Context, donation *models.Donation, request *models.Request, heldRev int64) {
	restored := *donation
	restored.Products = make([]models.Product, len(donation.Products))
	copy(restored.Products, donation.Products)
	for _, item := range request.Items {
		for i := range restored.Products {
			if restored.Products[i].ID == item.ProductID {
				restored.Products[i].Remaining += item.Quantity
			}
		}
	}
	restored.Rev = heldRev + 1
	restored.UpdatedAt = time.Now()

	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": donation.ID, "rev": heldRev}, &restored); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"donation_id": donation.ID.Hex(),
			"request_id":  request.ID.Hex(),
		}).Error("Failed to revert stock after aborted approval")
	}
}

// ReplaceRequest writes a request back guarded by its version token.
func (r *RequestRepository) ReplaceRequest(ctx context.Context, request *models.Request) error {
	newRequest := *request
	newRequest.Rev = request.Rev + 1
	newRequest.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": request.ID, "rev": request.Rev}, &newRequest)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", request.ID.Hex()).Error("Failed to replace request")
		return apperr.Storage("failed to update request", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	request.Rev = newRequest.Rev
	request.UpdatedAt = newRequest.UpdatedAt
	return nil
}

func (r *RequestRepository) findRequests(ctx context.Context, filter bson.M) ([]models.Request, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch requests")
		return nil, apperr.Storage("failed to fetch requests", err)
	}
	defer cursor.Close(ctx)

	var requests []models.Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, apperr.Storage("failed to decode requests", err)
	}
	return requests, nil
}
