package services

import (
	"context"
	"testing"
	"time"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	docs      *fakeDocumentStore
	notifs    *fakeNotificationStore
	users     *fakeUserStore
	donations *DonationService
	requests  *RequestService
	notifier  *NotificationService
}

func newFixture() *fixture {
	docs := newFakeDocumentStore()
	notifs := &fakeNotificationStore{}
	users := newFakeUserStore()
	notifier := NewNotificationService(notifs)
	return &fixture{
		docs:      docs,
		notifs:    notifs,
		users:     users,
		donations: NewDonationService(docs, docs, users),
		requests:  NewRequestService(docs, docs, users, notifier),
		notifier:  notifier,
	}
}

// seedDonation creates a donation owned by donorID with a single product
// line and returns it.
func (f *fixture) seedDonation(t *testing.T, donorID primitive.ObjectID, category string, total int) *models.Donation {
	t.Helper()
	donation, err := f.donations.CreateDonation(context.Background(), donorID, &models.Donation{
		MeetingPoint: "Central warehouse",
		Products: []models.Product{
			{Category: category, Total: total, ExpiryDate: time.Now().Add(72 * time.Hour)},
		},
	})
	require.NoError(t, err)
	return donation
}

func (f *fixture) seedRequest(t *testing.T, recipientID primitive.ObjectID, donation *models.Donation, quantity int) *models.Request {
	t.Helper()
	request, err := f.requests.SubmitRequest(context.Background(), recipientID, &models.Request{
		DonationID: donation.ID,
		Items: []models.RequestedItem{
			{ProductID: donation.Products[0].ID, Quantity: quantity},
		},
		MeetingDate: "2026-09-01",
		MeetingTime: "17:30",
		Contact:     "555-0101",
	})
	require.NoError(t, err)
	return request
}

func TestSubmitRequestValidatesItems(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)

	_, err := f.requests.SubmitRequest(context.Background(), recipient, &models.Request{
		DonationID: donation.ID,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.requests.SubmitRequest(context.Background(), recipient, &models.Request{
		DonationID: donation.ID,
		Items:      []models.RequestedItem{{ProductID: donation.Products[0].ID, Quantity: 0}},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSubmitRequestRejectsDuplicateProducts(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 6)
	productID := donation.Products[0].ID

	// Two lines for the same product would each pass the approval check
	// against the same counter and drive remaining negative.
	_, err := f.requests.SubmitRequest(context.Background(), recipient, &models.Request{
		DonationID: donation.ID,
		Items: []models.RequestedItem{
			{ProductID: productID, Quantity: 4},
			{ProductID: productID, Quantity: 4},
		},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Empty(t, f.docs.requests, "no request document should be created")

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Products[0].Remaining)
}

func TestSubmitRequestOwnDonationForbidden(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	donation := f.seedDonation(t, donor, "rice", 10)

	_, err := f.requests.SubmitRequest(context.Background(), donor, &models.Request{
		DonationID: donation.ID,
		Items:      []models.RequestedItem{{ProductID: donation.Products[0].ID, Quantity: 1}},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	assert.Empty(t, f.docs.requests, "no request document should be created")
}

func TestSubmitRequestSkipsStockCheckAndNotifiesDonor(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Maria")
	donation := f.seedDonation(t, donor, "rice", 10)

	// Far more than available: submission must still succeed, the check
	// happens at approval time.
	request, err := f.requests.SubmitRequest(context.Background(), recipient, &models.Request{
		DonationID: donation.ID,
		Items:      []models.RequestedItem{{ProductID: donation.Products[0].ID, Quantity: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusSubmitted, request.Status)

	donorNotifs := f.notifs.byUserAndEvent(donor, models.EventRequest)
	require.Len(t, donorNotifs, 1)
	assert.Contains(t, donorNotifs[0].Message, "Maria")
}

func TestApproveRequestAllocatesStock(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	approved, err := f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, approved.Status)

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Products[0].Remaining)
	assert.Equal(t, 10, stored.Products[0].Total)

	recipientNotifs := f.notifs.byUserAndEvent(recipient, models.EventRequest)
	require.Len(t, recipientNotifs, 1)
	assert.Equal(t, "Request Approved", recipientNotifs[0].Title)
}

func TestApproveRequestInsufficientStockAutoRejects(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	first := f.users.addUser("First")
	second := f.users.addUser("Second")
	donation := f.seedDonation(t, donor, "rice", 10)

	firstReq := f.seedRequest(t, first, donation, 4)
	_, err := f.requests.ApproveRequest(context.Background(), donor, firstReq.ID.Hex())
	require.NoError(t, err)

	// 8 > 6 remaining: the whole request is rejected, nothing is
	// partially fulfilled.
	secondReq := f.seedRequest(t, second, donation, 8)
	rejected, err := f.requests.ApproveRequest(context.Background(), donor, secondReq.ID.Hex())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	require.NotNil(t, rejected)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.Contains(t, rejected.RejectionComment, "rice")

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Products[0].Remaining, "no stock must move on rejection")

	persisted, err := f.docs.GetRequestByID(context.Background(), secondReq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, persisted.Status)
}

func TestApproveRequestUnknownProductAutoRejects(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)

	request, err := f.requests.SubmitRequest(context.Background(), recipient, &models.Request{
		DonationID: donation.ID,
		Items:      []models.RequestedItem{{ProductID: "no-such-product", Quantity: 1}},
	})
	require.NoError(t, err)

	rejected, err := f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
}

func TestApproveRequestAuthorization(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	stranger := f.users.addUser("Stranger")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	_, err := f.requests.ApproveRequest(context.Background(), stranger, request.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Products[0].Remaining, "authorization must fire before any mutation")

	persisted, err := f.docs.GetRequestByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusSubmitted, persisted.Status)
}

func TestApproveRequestTerminalStateGuard(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	_, err := f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	require.NoError(t, err)

	_, err = f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Products[0].Remaining, "stock must not be decremented twice")
}

func TestApproveRequestRetriesOnVersionConflict(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	f.docs.commitConflicts = 1

	approved, err := f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, approved.Status)

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Products[0].Remaining, "retry must not double-decrement")
}

func TestApproveRequestSurvivesNotificationFailure(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	f.notifs.failCreate = true

	approved, err := f.requests.ApproveRequest(context.Background(), donor, request.ID.Hex())
	require.NoError(t, err, "a notification write failure must not unwind the approval")
	assert.Equal(t, models.RequestStatusAccepted, approved.Status)
}

func TestRejectRequestRequiresComment(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	_, err := f.requests.RejectRequest(context.Background(), donor, request.ID.Hex(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRejectRequestStoresCommentAndNotifies(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	recipient := f.users.addUser("Recipient")
	donation := f.seedDonation(t, donor, "rice", 10)
	request := f.seedRequest(t, recipient, donation, 4)

	rejected, err := f.requests.RejectRequest(context.Background(), donor, request.ID.Hex(), "Pickup point too far")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "Pickup point too far", rejected.RejectionComment)

	stored, err := f.donations.GetDonation(context.Background(), donation.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Products[0].Remaining, "rejection never moves stock")

	recipientNotifs := f.notifs.byUserAndEvent(recipient, models.EventRequest)
	require.Len(t, recipientNotifs, 1)
	assert.Contains(t, recipientNotifs[0].Message, "Pickup point too far")
}

func TestGetRequestsForDonationEnrichesNames(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	alice := f.users.addUser("Alice")
	bob := f.users.addUser("Bob")
	donation := f.seedDonation(t, donor, "rice", 10)

	f.seedRequest(t, alice, donation, 2)
	bobReq := f.seedRequest(t, bob, donation, 3)

	// A decided request must not show up in the pending list.
	_, err := f.requests.RejectRequest(context.Background(), donor, bobReq.ID.Hex(), "No longer available")
	require.NoError(t, err)

	requests, err := f.requests.GetRequestsForDonation(context.Background(), donor, donation.ID.Hex())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "Alice", requests[0].RecipientName)
	assert.Equal(t, models.RequestStatusSubmitted, requests[0].Status)
}

func TestGetRequestsForDonationOwnerOnly(t *testing.T) {
	f := newFixture()
	donor := f.users.addUser("Donor")
	stranger := f.users.addUser("Stranger")
	donation := f.seedDonation(t, donor, "rice", 10)

	_, err := f.requests.GetRequestsForDonation(context.Background(), stranger, donation.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}
