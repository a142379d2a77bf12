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

// RequestHandler handles HTTP requests related to donation requests.
type RequestHandler struct {
	Service *services.RequestService
}

// NewRequestHandler creates a new instance of RequestHandler.
func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{Service: service}
}

// CreateRequestHandler submits a new request against a donation.
func (h *RequestHandler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request models.Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during request creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	recipientID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	created, err := h.Service.SubmitRequest(r.Context(), recipientID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":    claims.UserID,
		"requestID": created.ID.Hex(),
	}).Info("Request successfully submitted")

	writeJSON(w, http.StatusCreated, created)
}

// GetMyRequestsHandler lists the authenticated recipient's requests.
func (h *RequestHandler) GetMyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipientID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	requests, err := h.Service.GetMyRequests(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// GetRequestsForDonationHandler lists submitted requests for one of the
// donor's donations.
func (h *RequestHandler) GetRequestsForDonationHandler(w http.ResponseWriter, r *http.Request) {
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

	requests, err := h.Service.GetRequestsForDonation(r.Context(), donorID, vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// ApproveRequestHandler approves a request, allocating stock.
func (h *RequestHandler) ApproveRequestHandler(w http.ResponseWriter, r *http.Request) {
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

	approved, err := h.Service.ApproveRequest(r.Context(), donorID, vars["id"])
	if err != nil {
		// The insufficient-stock outcome still carries the rejected
		// request; the error mapping produces the client message.
		writeError(w, err)
		return
	}

	logrus.WithField("requestID", approved.ID.Hex()).Info("Request successfully approved")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Request approved",
		"request": approved,
	})
}

// RejectRequestHandler rejects a request with a mandatory comment.
func (h *RequestHandler) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)

	var body struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	donorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	rejected, err := h.Service.RejectRequest(r.Context(), donorID, vars["id"], body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	logrus.WithField("requestID", rejected.ID.Hex()).Info("Request successfully rejected")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Request rejected",
		"request": rejected,
	})
}
