package services

import (
	"context"
	"sort"
	"time"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDocumentStore is an in-memory stand-in for the shared documents
// collection. It implements both DonationStore and RequestStore, like the
// real repositories do over one collection.
type fakeDocumentStore struct {
	donations map[primitive.ObjectID]*models.Donation
	requests  map[primitive.ObjectID]*models.Request

	// commitConflicts makes the next N approval commits fail with a
	// version conflict, bumping the stored donation rev as if another
	// writer had landed in between.
	commitConflicts int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		donations: make(map[primitive.ObjectID]*models.Donation),
		requests:  make(map[primitive.ObjectID]*models.Request),
	}
}

func (f *fakeDocumentStore) CreateDonation(_ context.Context, donation *models.Donation) (*models.Donation, error) {
	donation.ID = primitive.NewObjectID()
	donation.DocType = models.DocTypeDonation
	donation.Rev = 1
	donation.CreatedAt = time.Now()
	donation.UpdatedAt = donation.CreatedAt
	stored := *donation
	stored.Products = append([]models.Product(nil), donation.Products...)
	f.donations[donation.ID] = &stored
	return donation, nil
}

func (f *fakeDocumentStore) GetDonationByID(_ context.Context, id primitive.ObjectID) (*models.Donation, error) {
	stored, ok := f.donations[id]
	if !ok {
		return nil, apperr.NotFound("donation not found")
	}
	copied := *stored
	copied.Products = append([]models.Product(nil), stored.Products...)
	return &copied, nil
}

func (f *fakeDocumentStore) GetDonationsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Donation, error) {
	var out []models.Donation
	for _, id := range ids {
		if stored, ok := f.donations[id]; ok {
			copied := *stored
			copied.Products = append([]models.Product(nil), stored.Products...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) FindAvailable(_ context.Context) ([]models.Donation, error) {
	var out []models.Donation
	for _, stored := range f.donations {
		if !stored.Deleted && stored.HasStock() {
			out = append(out, *stored)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDocumentStore) FindByDonor(_ context.Context, donorID primitive.ObjectID) ([]models.Donation, error) {
	var out []models.Donation
	for _, stored := range f.donations {
		if !stored.Deleted && stored.DonorID == donorID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) FindExpiring(_ context.Context, until time.Time) ([]models.Donation, error) {
	var out []models.Donation
	for _, stored := range f.donations {
		if stored.Deleted {
			continue
		}
		for _, p := range stored.Products {
			if p.Remaining > 0 && p.ExpiryDate.Before(until) {
				out = append(out, *stored)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) ReplaceDonation(_ context.Context, donation *models.Donation) error {
	stored, ok := f.donations[donation.ID]
	if !ok || stored.Rev != donation.Rev {
		return repository.ErrVersionConflict
	}
	donation.Rev++
	donation.UpdatedAt = time.Now()
	copied := *donation
	copied.Products = append([]models.Product(nil), donation.Products...)
	f.donations[donation.ID] = &copied
	return nil
}

func (f *fakeDocumentStore) CreateRequest(_ context.Context, request *models.Request) (*models.Request, error) {
	request.ID = primitive.NewObjectID()
	request.DocType = models.DocTypeRequest
	request.Status = models.RequestStatusSubmitted
	request.Rev = 1
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	stored := *request
	f.requests[request.ID] = &stored
	return request, nil
}

func (f *fakeDocumentStore) GetRequestByID(_ context.Context, id primitive.ObjectID) (*models.Request, error) {
	stored, ok := f.requests[id]
	if !ok {
		return nil, apperr.NotFound("request not found")
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeDocumentStore) FindByDonation(_ context.Context, donationID primitive.ObjectID, status string) ([]models.Request, error) {
	var out []models.Request
	for _, stored := range f.requests {
		if stored.DonationID == donationID && stored.Status == status {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) FindByRecipient(_ context.Context, recipientID primitive.ObjectID) ([]models.Request, error) {
	var out []models.Request
	for _, stored := range f.requests {
		if stored.RecipientID == recipientID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) FindByStatus(_ context.Context, status string) ([]models.Request, error) {
	var out []models.Request
	for _, stored := range f.requests {
		if stored.Status == status {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) CountByDonationAndStatus(_ context.Context, donationID primitive.ObjectID, status string) (int64, error) {
	var count int64
	for _, stored := range f.requests {
		if stored.DonationID == donationID && stored.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeDocumentStore) CommitApproval(_ context.Context, donation *models.Donation, request *models.Request) error {
	if f.commitConflicts > 0 {
		f.commitConflicts--
		// Another writer landed first: the stored donation moves on.
		if stored, ok := f.donations[donation.ID]; ok {
			stored.Rev++
		}
		return repository.ErrVersionConflict
	}

	stored, ok := f.donations[donation.ID]
	if !ok || stored.Rev != donation.Rev {
		return repository.ErrVersionConflict
	}

	donation.Rev++
	request.Rev++
	donationCopy := *donation
	donationCopy.Products = append([]models.Product(nil), donation.Products...)
	requestCopy := *request
	f.donations[donation.ID] = &donationCopy
	f.requests[request.ID] = &requestCopy
	return nil
}

func (f *fakeDocumentStore) ReplaceRequest(_ context.Context, request *models.Request) error {
	stored, ok := f.requests[request.ID]
	if !ok || stored.Rev != request.Rev {
		return repository.ErrVersionConflict
	}
	request.Rev++
	copied := *request
	f.requests[request.ID] = &copied
	return nil
}

// fakeNotificationStore records notifications in memory.
type fakeNotificationStore struct {
	notifications []*models.Notification
	failCreate    bool
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, notif *models.Notification) error {
	if f.failCreate {
		return apperr.Storage("notification store unavailable", nil)
	}
	notif.ID = primitive.NewObjectID()
	notif.CreatedAt = time.Now()
	f.notifications = append(f.notifications, notif)
	return nil
}

func (f *fakeNotificationStore) GetUserNotifications(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeNotificationStore) GetNotificationByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	for _, n := range f.notifications {
		if n.ID == id {
			copied := *n
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("notification not found")
}

func (f *fakeNotificationStore) MarkAsRead(_ context.Context, id primitive.ObjectID) error {
	for _, n := range f.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return nil
}

func (f *fakeNotificationStore) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) byUserAndEvent(userID primitive.ObjectID, eventType string) []*models.Notification {
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID && n.EventType == eventType {
			out = append(out, n)
		}
	}
	return out
}

// fakeUserStore holds user accounts in memory.
type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserStore) addUser(name string) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.users[id] = &models.User{ID: id, Name: name, Role: models.RoleIndividual}
	return id
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	stored, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeUserStore) GetUserByContact(_ context.Context, contact string) (*models.User, error) {
	for _, stored := range f.users {
		if stored.Contact == contact {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeUserStore) UpdateUser(_ context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return nil, apperr.NotFound("user not found")
	}
	user.UpdatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return user, nil
}

func (f *fakeUserStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if stored, ok := f.users[id]; ok {
			out = append(out, *stored)
		}
	}
	return out, nil
}
