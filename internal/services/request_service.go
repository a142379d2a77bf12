package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/repository"
	"github.com/donenme/donenme-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approval re-reads and re-runs the stock check when the donation changed
// underneath it, up to this many attempts.
const maxApproveAttempts = 3

// RequestService implements the request state machine and the stock
// allocation performed at approval time.
type RequestService struct {
	repo         RequestStore
	donationRepo DonationStore
	userRepo     UserStore
	Notifier     *NotificationService
}

// NewRequestService creates a new instance of RequestService.
func NewRequestService(repo RequestStore, donationRepo DonationStore, userRepo UserStore, notifier *NotificationService) *RequestService {
	return &RequestService{
		repo:         repo,
		donationRepo: donationRepo,
		userRepo:     userRepo,
		Notifier:     notifier,
	}
}

// SubmitRequest creates a new submitted request against a donation.
// Stock is deliberately not checked here: several requests may compete for
// the same pool and the check happens once, at approval.
func (s *RequestService) SubmitRequest(ctx context.Context, recipientID primitive.ObjectID, request *models.Request) (*models.Request, error) {
	if len(request.Items) == 0 {
		return nil, apperr.Validation("a request requires at least one product")
	}
	seen := make(map[string]bool, len(request.Items))
	for _, item := range request.Items {
		if item.ProductID == "" {
			return nil, apperr.Validation("every requested item needs a product id")
		}
		if item.Quantity <= 0 {
			return nil, apperr.Validation("requested quantities must be positive")
		}
		// A repeated product would be checked against the same remaining
		// counter more than once and decremented cumulatively at approval.
		if seen[item.ProductID] {
			return nil, apperr.Validation("product %q appears more than once in the request", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	donation, err := s.donationRepo.GetDonationByID(ctx, request.DonationID)
	if err != nil {
		return nil, err
	}
	if donation.Deleted {
		return nil, apperr.NotFound("donation not found")
	}
	if donation.DonorID == recipientID {
		return nil, apperr.Authorization("you cannot request your own donation")
	}

	recipient, err := s.userRepo.GetUserByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	request.RecipientID = recipientID
	created, err := s.repo.CreateRequest(ctx, request)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create request")
		return nil, err
	}

	s.Notifier.Notify(ctx, donation.DonorID,
		"New Request Received",
		fmt.Sprintf("You have received a new request from %s.", recipient.Name),
		&created.ID, models.EventRequest)

	logger.Log.WithFields(map[string]interface{}{
		"request_id":  created.ID.Hex(),
		"donation_id": donation.ID.Hex(),
	}).Info("Request submitted in service layer")
	return created, nil
}

// ApproveRequest allocates stock to a request. The check is all-or-nothing:
// if any requested product is missing or short, the whole request is
// persisted as rejected and no stock moves. On success the decremented
// donation and the accepted request are committed together; a version
// conflict on that commit re-runs the whole check.
func (s *RequestService) ApproveRequest(ctx context.Context, donorID primitive.ObjectID, requestID string) (*models.Request, error) {
	objID, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, apperr.Validation("invalid request ID")
	}

	for attempt := 0; attempt < maxApproveAttempts; attempt++ {
		request, err := s.repo.GetRequestByID(ctx, objID)
		if err != nil {
			return nil, err
		}
		donation, err := s.donationRepo.GetDonationByID(ctx, request.DonationID)
		if err != nil {
			return nil, err
		}

		if donation.DonorID != donorID {
			return nil, apperr.Authorization("you are not the owner of this donation")
		}
		if request.IsTerminal() {
			return nil, apperr.Conflict("request has already been decided")
		}

		// All-or-nothing stock check against the freshly read counters.
		if short := findShortfall(donation, request); short != "" {
			request.Status = models.RequestStatusRejected
			request.RejectionComment = fmt.Sprintf("Insufficient stock for product %q.", short)
			if err := s.repo.ReplaceRequest(ctx, request); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					continue
				}
				return nil, err
			}
			logger.Log.WithFields(map[string]interface{}{
				"request_id": request.ID.Hex(),
				"product":    short,
			}).Info("Request auto-rejected for insufficient stock")
			return request, apperr.InsufficientStock(short)
		}

		// Decrement only the referenced products.
		for _, item := range request.Items {
			product := donation.FindProduct(item.ProductID)
			product.Remaining -= item.Quantity
		}
		request.Status = models.RequestStatusAccepted

		if err := s.repo.CommitApproval(ctx, donation, request); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				logger.Log.WithFields(map[string]interface{}{
					"request_id": request.ID.Hex(),
					"attempt":    attempt + 1,
				}).Warn("Approval hit a concurrent donation update, retrying")
				continue
			}
			return nil, err
		}

		s.Notifier.Notify(ctx, request.RecipientID,
			"Request Approved",
			"Your request has been approved. Check the meetup details.",
			&request.ID, models.EventRequest)

		logger.Log.WithField("request_id", request.ID.Hex()).Info("Request approved in service layer")
		return request, nil
	}

	return nil, apperr.Storage("approval could not be committed after repeated conflicts", repository.ErrVersionConflict)
}

// RejectRequest declines a request with a mandatory comment.
func (s *RequestService) RejectRequest(ctx context.Context, donorID primitive.ObjectID, requestID, comment string) (*models.Request, error) {
	if comment == "" {
		return nil, apperr.Validation("a comment is required to reject a request")
	}
	objID, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, apperr.Validation("invalid request ID")
	}

	request, err := s.repo.GetRequestByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	donation, err := s.donationRepo.GetDonationByID(ctx, request.DonationID)
	if err != nil {
		return nil, err
	}

	if donation.DonorID != donorID {
		return nil, apperr.Authorization("you are not the owner of this donation")
	}
	if request.IsTerminal() {
		return nil, apperr.Conflict("request has already been decided")
	}

	request.Status = models.RequestStatusRejected
	request.RejectionComment = comment

	if err := s.repo.ReplaceRequest(ctx, request); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperr.Conflict("request was modified concurrently, please retry")
		}
		return nil, err
	}

	s.Notifier.Notify(ctx, request.RecipientID,
		"Request Rejected",
		fmt.Sprintf("Your request has been rejected. Reason: %s", comment),
		&request.ID, models.EventRequest)

	logger.Log.WithField("request_id", request.ID.Hex()).Info("Request rejected in service layer")
	return request, nil
}

// GetRequestsForDonation lists the still-submitted requests against a
// donation for its owner, each enriched with the requester's display name
// resolved in one batched lookup.
func (s *RequestService) GetRequestsForDonation(ctx context.Context, donorID primitive.ObjectID, donationID string) ([]models.Request, error) {
	objID, err := primitive.ObjectIDFromHex(donationID)
	if err != nil {
		return nil, apperr.Validation("invalid donation ID")
	}

	donation, err := s.donationRepo.GetDonationByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if donation.DonorID != donorID {
		return nil, apperr.Authorization("you are not the owner of this donation")
	}

	requests, err := s.repo.FindByDonation(ctx, objID, models.RequestStatusSubmitted)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []models.Request{}, nil
	}

	seen := make(map[primitive.ObjectID]bool, len(requests))
	recipientIDs := make([]primitive.ObjectID, 0, len(requests))
	for _, r := range requests {
		if !seen[r.RecipientID] {
			seen[r.RecipientID] = true
			recipientIDs = append(recipientIDs, r.RecipientID)
		}
	}

	recipients, err := s.userRepo.GetUsersByIDs(ctx, recipientIDs)
	if err != nil {
		return nil, err
	}
	namesByID := make(map[primitive.ObjectID]string, len(recipients))
	for _, u := range recipients {
		namesByID[u.ID] = u.Name
	}

	for i := range requests {
		name, ok := namesByID[requests[i].RecipientID]
		if !ok {
			name = "Unknown user"
		}
		requests[i].RecipientName = name
	}

	return requests, nil
}

// GetMyRequests lists all requests submitted by the recipient.
func (s *RequestService) GetMyRequests(ctx context.Context, recipientID primitive.ObjectID) ([]models.Request, error) {
	return s.repo.FindByRecipient(ctx, recipientID)
}

// GetAcceptedRequests returns every accepted request. Consumed by the
// meetup reminder scan.
func (s *RequestService) GetAcceptedRequests(ctx context.Context) ([]models.Request, error) {
	return s.repo.FindByStatus(ctx, models.RequestStatusAccepted)
}

// findShortfall returns the name of the first requested product that is
// missing from the donation or short on stock, or "" when everything fits.
func findShortfall(donation *models.Donation, request *models.Request) string {
	for _, item := range request.Items {
		product := donation.FindProduct(item.ProductID)
		if product == nil {
			return item.ProductID
		}
		if product.Remaining < item.Quantity {
			return product.Category
		}
	}
	return ""
}
