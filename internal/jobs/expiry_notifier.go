package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/services"
	"github.com/sirupsen/logrus"
)

// ExpiryNotifier scans perishable inventory and alerts donors about
// products that run out within the next 24 hours. The scan is stateless:
// a product still in the window on the next run is notified again.
type ExpiryNotifier struct {
	DonationService     *services.DonationService
	NotificationService *services.NotificationService
}

// NewExpiryNotifier creates a new instance of ExpiryNotifier.
func NewExpiryNotifier(donationService *services.DonationService, notifService *services.NotificationService) *ExpiryNotifier {
	return &ExpiryNotifier{
		DonationService:     donationService,
		NotificationService: notifService,
	}
}

// RunHourlyScan emits one EXPIRY notification per product that still has
// stock left and expires before tomorrow.
func (e *ExpiryNotifier) RunHourlyScan(ctx context.Context) error {
	until := time.Now().Add(24 * time.Hour)

	donations, err := e.DonationService.GetExpiring(ctx, until)
	if err != nil {
		return fmt.Errorf("failed to fetch expiring donations: %v", err)
	}

	notified := 0
	for _, donation := range donations {
		for _, product := range donation.Products {
			if product.Remaining > 0 && product.ExpiryDate.Before(until) {
				e.NotificationService.Notify(
					ctx,
					donation.DonorID,
					"Product About to Expire",
					fmt.Sprintf("The product %q is about to expire.", product.Category),
					&donation.ID,
					models.EventExpiry,
				)
				notified++
			}
		}
	}

	logrus.WithField("count", notified).Info("Expiry scan completed")
	return nil
}
