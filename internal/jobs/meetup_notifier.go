package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/services"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeetupNotifier reminds both parties of an accepted request about a
// meetup coming up within the next two hours.
type MeetupNotifier struct {
	RequestService      *services.RequestService
	DonationService     *services.DonationService
	UserService         *services.UserService
	NotificationService *services.NotificationService
}

// NewMeetupNotifier creates a new instance of MeetupNotifier.
func NewMeetupNotifier(requestService *services.RequestService, donationService *services.DonationService, userService *services.UserService, notifService *services.NotificationService) *MeetupNotifier {
	return &MeetupNotifier{
		RequestService:      requestService,
		DonationService:     donationService,
		UserService:         userService,
		NotificationService: notifService,
	}
}

// RunScan picks up accepted requests whose meeting time falls within the
// next two hours and notifies recipient and donor. Donors and recipient
// names are resolved in batched lookups, not one query per request.
func (m *MeetupNotifier) RunScan(ctx context.Context) error {
	now := time.Now()
	cutoff := now.Add(2 * time.Hour)

	accepted, err := m.RequestService.GetAcceptedRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch accepted requests: %v", err)
	}

	var upcoming []models.Request
	for _, request := range accepted {
		at := request.MeetingAt()
		if !at.IsZero() && at.After(now) && at.Before(cutoff) {
			upcoming = append(upcoming, request)
		}
	}
	if len(upcoming) == 0 {
		logrus.Info("Meetup scan completed, nothing upcoming")
		return nil
	}

	donationIDs := make([]primitive.ObjectID, 0, len(upcoming))
	recipientIDs := make([]primitive.ObjectID, 0, len(upcoming))
	for _, request := range upcoming {
		donationIDs = append(donationIDs, request.DonationID)
		recipientIDs = append(recipientIDs, request.RecipientID)
	}

	donations, err := m.DonationService.GetDonationsByIDs(ctx, donationIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch donations for meetups: %v", err)
	}
	donorsByDonation := make(map[primitive.ObjectID]primitive.ObjectID, len(donations))
	for _, donation := range donations {
		donorsByDonation[donation.ID] = donation.DonorID
	}

	recipientNames, err := m.UserService.GetPublicNames(ctx, recipientIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient names: %v", err)
	}

	for _, request := range upcoming {
		m.NotificationService.Notify(
			ctx,
			request.RecipientID,
			"Meetup Reminder",
			fmt.Sprintf("Remember your meetup scheduled today at %s.", request.MeetingTime),
			&request.ID,
			models.EventMeeting,
		)

		donorID, ok := donorsByDonation[request.DonationID]
		if !ok {
			logrus.WithField("request_id", request.ID.Hex()).Warn("Meetup scan found request with missing donation")
			continue
		}
		name := recipientNames[request.RecipientID]
		if name == "" {
			name = "the recipient"
		}
		m.NotificationService.Notify(
			ctx,
			donorID,
			"Meetup Reminder",
			fmt.Sprintf("Remember your meetup with %s scheduled today at %s.", name, request.MeetingTime),
			&request.ID,
			models.EventMeeting,
		)
	}

	logrus.WithField("count", len(upcoming)).Info("Meetup scan completed")
	return nil
}
