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

// ErrVersionConflict is returned when an optimistic replace finds that the
// document changed since it was read. Callers re-read and retry.
var ErrVersionConflict = errors.New("document version conflict")

// Donations and requests share the "documents" collection, discriminated
// by doc_type. An approval touches both document kinds through the same
// collection handle.
const documentsCollection = "documents"

// DonationRepository handles database operations related to donations.
type DonationRepository struct {
	collection *mongo.Collection
}

// NewDonationRepository creates a new instance of DonationRepository.
func NewDonationRepository(db *mongo.Database) *DonationRepository {
	return &DonationRepository{
		collection: db.Collection(documentsCollection),
	}
}

// CreateDonation inserts a new donation document.
func (r *DonationRepository) CreateDonation(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	donation.DocType = models.DocTypeDonation
	donation.Rev = 1
	donation.CreatedAt = time.Now()
	donation.UpdatedAt = donation.CreatedAt

	result, err := r.collection.InsertOne(ctx, donation)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert donation")
		return nil, apperr.Storage("failed to create donation", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted donation ID")
		return nil, apperr.Storage("failed to create donation", nil)
	}
	donation.ID = insertedID

	logger.Log.WithField("donation_id", donation.ID.Hex()).Info("Donation created successfully")
	return donation, nil
}

// GetDonationByID fetches a donation by its ID.
func (r *DonationRepository) GetDonationByID(ctx context.Context, id primitive.ObjectID) (*models.Donation, error) {
	var donation models.Donation

	filter := bson.M{"_id": id, "doc_type": models.DocTypeDonation}
	err := r.collection.FindOne(ctx, filter).Decode(&donation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("donation not found")
		}
		logger.Log.WithError(err).WithField("donation_id", id.Hex()).Error("Failed to find donation by ID")
		return nil, apperr.Storage("failed to get donation", err)
	}

	return &donation, nil
}

// GetDonationsByIDs fetches several donations in one query. Used by the
// meetup scan to resolve donors without a per-request lookup.
func (r *DonationRepository) GetDonationsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Donation, error) {
	filter := bson.M{
		"_id":      bson.M{"$in": ids},
		"doc_type": models.DocTypeDonation,
	}
	return r.findDonations(ctx, filter, nil)
}

// FindAvailable returns all non-deleted donations with at least one
// product that still has units left, newest first.
func (r *DonationRepository) FindAvailable(ctx context.Context) ([]models.Donation, error) {
	filter := bson.M{
		"doc_type":           models.DocTypeDonation,
		"deleted":            false,
		"products.remaining": bson.M{"$gt": 0},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	return r.findDonations(ctx, filter, opts)
}

// FindByDonor returns all non-deleted donations owned by the donor,
// regardless of remaining stock.
func (r *DonationRepository) FindByDonor(ctx context.Context, donorID primitive.ObjectID) ([]models.Donation, error) {
	filter := bson.M{
		"doc_type": models.DocTypeDonation,
		"donor_id": donorID,
		"deleted":  false,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	return r.findDonations(ctx, filter, opts)
}

// FindExpiring returns non-deleted donations holding at least one product
// with stock left and an expiry date before the given cutoff.
func (r *DonationRepository) FindExpiring(ctx context.Context, until time.Time) ([]models.Donation, error) {
	filter := bson.M{
		"doc_type": models.DocTypeDonation,
		"deleted":  false,
		"products": bson.M{"$elemMatch": bson.M{
			"remaining":   bson.M{"$gt": 0},
			"expiry_date": bson.M{"$lt": until},
		}},
	}

	return r.findDonations(ctx, filter, nil)
}

// ReplaceDonation writes the donation back guarded by its version token.
// Returns ErrVersionConflict if the document changed since it was read.
func (r *DonationRepository) ReplaceDonation(ctx context.Context, donation *models.Donation) error {
	donation.UpdatedAt = time.Now()

	filter := bson.M{"_id": donation.ID, "rev": donation.Rev}
	replacement := *donation
	replacement.Rev = donation.Rev + 1

	result, err := r.collection.ReplaceOne(ctx, filter, &replacement)
	if err != nil {
		logger.Log.WithError(err).WithField("donation_id", donation.ID.Hex()).Error("Failed to replace donation")
		return apperr.Storage("failed to update donation", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	donation.Rev = replacement.Rev
	logger.Log.WithField("donation_id", donation.ID.Hex()).Info("Donation updated successfully")
	return nil
}

func (r *DonationRepository) findDonations(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Donation, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.collection.Find(ctx, filter, opts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch donations")
		return nil, apperr.Storage("failed to fetch donations", err)
	}
	defer cursor.Close(ctx)

	var donations []models.Donation
	if err := cursor.All(ctx, &donations); err != nil {
		logger.Log.WithError(err).Error("Failed to decode donations")
		return nil, apperr.Storage("failed to decode donations", err)
	}
	return donations, nil
}
