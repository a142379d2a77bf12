package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/donenme/donenme-api/internal/models"
	"github.com/donenme/donenme-api/internal/services"
	"github.com/donenme/donenme-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DonationHandler handles HTTP requests related to donations.
type DonationHandler struct {
	Service *services.DonationService
}

// NewDonationHandler creates a new instance of DonationHandler.
func NewDonationHandler(service *services.DonationService) *DonationHandler {
	return &DonationHandler{Service: service}
}

// CreateDonationHandler handles the creation of a new donation.
func (h *DonationHandler) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var donation models.Donation
	if err := json.NewDecoder(r.Body).Decode(&donation); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during donation creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	donorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	created, err := h.Service.CreateDonation(r.Context(), donorID, &donation)
	if err != nil {
		writeError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":     claims.UserID,
		"donationID": created.ID.Hex(),
	}).Info("Donation successfully created")

	writeJSON(w, http.StatusCreated, created)
}

// GetAvailableDonationsHandler lists all donations open for requests.
func (h *DonationHandler) GetAvailableDonationsHandler(w http.ResponseWriter, r *http.Request) {
	donations, err := h.Service.GetAvailableDonations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// GetDonationHandler returns a single donation by id.
func (h *DonationHandler) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	donation, err := h.Service.GetDonation(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donation)
}

// GetMyDonationsHandler lists the authenticated donor's donations.
func (h *DonationHandler) GetMyDonationsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	donations, err := h.Service.GetMyDonations(r.Context(), donorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// UpdateDonationHandler applies a partial edit to a donation.
func (h *DonationHandler) UpdateDonationHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)

	var update services.DonationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	donorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	updated, err := h.Service.UpdateDonation(r.Context(), donorID, vars["id"], &update)
	if err != nil {
		writeError(w, err)
		return
	}

	logrus.WithField("donationID", vars["id"]).Info("Donation successfully updated")
	writeJSON(w, http.StatusOK, updated)
}

// DeleteDonationHandler soft-deletes a donation.
func (h *DonationHandler) DeleteDonationHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)

	donorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	if err := h.Service.SoftDeleteDonation(r.Context(), donorID, vars["id"]); err != nil {
		writeError(w, err)
		return
	}

	logrus.WithField("donationID", vars["id"]).Info("Donation successfully deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Donation deleted"})
}
