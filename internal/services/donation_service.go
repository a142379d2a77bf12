package services

import (
	"context"
	"errors"
	"time"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/repository"
	"github.com/donenme/donenme-api/pkg/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DonationService owns the donation documents and their per-product
// remaining counters.
type DonationService struct {
	repo        DonationStore
	requestRepo RequestStore
	userRepo    UserStore
}

// NewDonationService creates a new instance of DonationService.
func NewDonationService(repo DonationStore, requestRepo RequestStore, userRepo UserStore) *DonationService {
	return &DonationService{
		repo:        repo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
	}
}

// DonationUpdate carries the editable fields of a donation. Nil/empty
// fields are left untouched.
type DonationUpdate struct {
	Products     []models.Product `json:"products"`
	MeetingPoint string           `json:"meeting_point"`
	MeetingDate  string           `json:"meeting_date"`
	MeetingTime  string           `json:"meeting_time"`
}

// CreateDonation validates the product lines, assigns each one a unique id
// and stores the donation with remaining = total.
func (s *DonationService) CreateDonation(ctx context.Context, donorID primitive.ObjectID, donation *models.Donation) (*models.Donation, error) {
	if len(donation.Products) == 0 {
		return nil, apperr.Validation("a donation requires at least one product")
	}
	if donation.MeetingPoint == "" {
		return nil, apperr.Validation("a meeting point is required")
	}

	today := startOfDay(time.Now())
	for i := range donation.Products {
		p := &donation.Products[i]
		if p.Category == "" {
			return nil, apperr.Validation("every product requires a category")
		}
		if p.Total <= 0 {
			return nil, apperr.Validation("product %q must have a positive quantity", p.Category)
		}
		if p.ExpiryDate.Before(today) {
			return nil, apperr.Validation("product %q has an expiry date in the past", p.Category)
		}
		p.ID = uuid.NewString()
		p.Remaining = p.Total
	}

	donation.DonorID = donorID
	donation.Deleted = false

	created, err := s.repo.CreateDonation(ctx, donation)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create donation")
		return nil, err
	}

	logger.Log.WithField("donation_id", created.ID.Hex()).Info("Donation created in service layer")
	return created, nil
}

// GetAvailableDonations lists all donations open for new requests, each
// enriched with a public donor projection resolved in one batched lookup.
func (s *DonationService) GetAvailableDonations(ctx context.Context) ([]models.Donation, error) {
	donations, err := s.repo.FindAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(donations) == 0 {
		return []models.Donation{}, nil
	}

	seen := make(map[primitive.ObjectID]bool, len(donations))
	donorIDs := make([]primitive.ObjectID, 0, len(donations))
	for _, d := range donations {
		if !seen[d.DonorID] {
			seen[d.DonorID] = true
			donorIDs = append(donorIDs, d.DonorID)
		}
	}
	donors, err := s.userRepo.GetUsersByIDs(ctx, donorIDs)
	if err != nil {
		return nil, err
	}

	donorsByID := make(map[primitive.ObjectID]models.PublicUser, len(donors))
	for _, u := range donors {
		donorsByID[u.ID] = u.Public()
	}
	for i := range donations {
		if pub, ok := donorsByID[donations[i].DonorID]; ok {
			donations[i].Donor = &pub
		}
	}

	return donations, nil
}

// GetMyDonations lists all non-deleted donations owned by the donor.
func (s *DonationService) GetMyDonations(ctx context.Context, donorID primitive.ObjectID) ([]models.Donation, error) {
	return s.repo.FindByDonor(ctx, donorID)
}

// GetDonation fetches a single donation by id.
func (s *DonationService) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid donation ID")
	}
	return s.repo.GetDonationByID(ctx, objID)
}

// UpdateDonation applies the supplied fields to a donation. Editing is
// blocked once any request has been accepted, so already-approved
// allocations can never be invalidated. Product totals may only be lowered
// down to the amount already handed out.
func (s *DonationService) UpdateDonation(ctx context.Context, donorID primitive.ObjectID, donationID string, update *DonationUpdate) (*models.Donation, error) {
	objID, err := primitive.ObjectIDFromHex(donationID)
	if err != nil {
		return nil, apperr.Validation("invalid donation ID")
	}

	donation, err := s.repo.GetDonationByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if donation.DonorID != donorID {
		return nil, apperr.Authorization("you are not the owner of this donation")
	}

	accepted, err := s.requestRepo.CountByDonationAndStatus(ctx, objID, models.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	if accepted > 0 {
		return nil, apperr.Conflict("donation has accepted requests and can no longer be edited")
	}

	if update.Products != nil {
		merged, err := s.mergeProducts(donation, update.Products)
		if err != nil {
			return nil, err
		}
		donation.Products = merged
	}
	if update.MeetingPoint != "" {
		donation.MeetingPoint = update.MeetingPoint
	}
	if update.MeetingDate != "" {
		donation.MeetingDate = update.MeetingDate
	}
	if update.MeetingTime != "" {
		donation.MeetingTime = update.MeetingTime
	}

	if err := s.repo.ReplaceDonation(ctx, donation); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperr.Conflict("donation was modified concurrently, please retry")
		}
		return nil, err
	}

	logger.Log.WithField("donation_id", donation.ID.Hex()).Info("Donation updated in service layer")
	return donation, nil
}

// SoftDeleteDonation marks a donation as deleted. The document is kept so
// existing requests and notifications retain a valid reference.
func (s *DonationService) SoftDeleteDonation(ctx context.Context, donorID primitive.ObjectID, donationID string) error {
	objID, err := primitive.ObjectIDFromHex(donationID)
	if err != nil {
		return apperr.Validation("invalid donation ID")
	}

	donation, err := s.repo.GetDonationByID(ctx, objID)
	if err != nil {
		return err
	}
	if donation.DonorID != donorID {
		return apperr.Authorization("you are not the owner of this donation")
	}

	donation.Deleted = true
	if err := s.repo.ReplaceDonation(ctx, donation); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperr.Conflict("donation was modified concurrently, please retry")
		}
		return err
	}

	logger.Log.WithField("donation_id", donation.ID.Hex()).Info("Donation soft-deleted")
	return nil
}

// GetExpiring returns donations holding products that run out before the
// cutoff. Consumed by the expiry scan job.
func (s *DonationService) GetExpiring(ctx context.Context, until time.Time) ([]models.Donation, error) {
	return s.repo.FindExpiring(ctx, until)
}

// GetDonationsByIDs resolves several donations in one batched lookup.
func (s *DonationService) GetDonationsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Donation, error) {
	if len(ids) == 0 {
		return []models.Donation{}, nil
	}
	return s.repo.GetDonationsByIDs(ctx, ids)
}

// mergeProducts replaces the product list while preserving allocation
// invariants: an existing line keeps its id and allocated amount, and its
// total can be lowered only to that floor, never raised.
func (s *DonationService) mergeProducts(donation *models.Donation, updated []models.Product) ([]models.Product, error) {
	if len(updated) == 0 {
		return nil, apperr.Validation("a donation requires at least one product")
	}

	today := startOfDay(time.Now())
	merged := make([]models.Product, 0, len(updated))
	for _, p := range updated {
		if p.Total <= 0 {
			return nil, apperr.Validation("product %q must have a positive quantity", p.Category)
		}

		existing := donation.FindProduct(p.ID)
		if existing == nil {
			// New line item.
			if p.Category == "" {
				return nil, apperr.Validation("every product requires a category")
			}
			if p.ExpiryDate.Before(today) {
				return nil, apperr.Validation("product %q has an expiry date in the past", p.Category)
			}
			p.ID = uuid.NewString()
			p.Remaining = p.Total
			merged = append(merged, p)
			continue
		}

		allocated := existing.Allocated()
		if p.Total > existing.Total {
			return nil, apperr.Validation("product %q total cannot be raised", existing.Category)
		}
		if p.Total < allocated {
			return nil, apperr.Validation("product %q total cannot go below the %d units already allocated", existing.Category, allocated)
		}
		p.Remaining = p.Total - allocated
		merged = append(merged, p)
	}

	return merged, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
