package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/donenme/donenme-api/internal/config"
	"github.com/donenme/donenme-api/internal/services"
	jwtutil "github.com/donenme/donenme-api/pkg/jwt"
	"github.com/donenme/donenme-api/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles HTTP requests related to user operations.
type UserHandler struct {
	Service *services.UserService
	Config  *config.Config
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Service: service,
		Config:  cfg,
	}
}

// RegisterUserHandler handles user registration.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.WithError(err).Warn("Failed to decode user registration request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	created, err := h.Service.RegisterUser(r.Context(), &input)
	if err != nil {
		writeError(w, err)
		return
	}

	// Auto-login after registration.
	token, err := jwtutil.GenerateToken(created.ID.Hex(), created.Role, h.Config.JWTSecret, h.Config.TokenExpiry)
	if err != nil {
		log.WithError(err).Error("Failed to generate JWT token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.WithField("userID", created.ID.Hex()).Info("User registered successfully")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  created.Public(),
	})
}

// LoginUserHandler handles user login.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Contact  string `json:"contact"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.WithError(err).Warn("Failed to decode login request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.Service.AuthenticateUser(r.Context(), credentials.Contact, credentials.Password)
	if err != nil {
		if apperr.IsKind(err, apperr.KindAuthorization) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, err)
		return
	}

	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Role, h.Config.JWTSecret, h.Config.TokenExpiry)
	if err != nil {
		log.WithError(err).Error("Failed to generate JWT token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User logged in successfully")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user.Public(),
	})
}

// GetMyProfileHandler returns the authenticated user's own profile. The
// hashed password never serializes.
func (h *UserHandler) GetMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMyProfileHandler applies a partial edit to the authenticated
// user's profile.
func (h *UserHandler) UpdateMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var update services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	updated, err := h.Service.UpdateProfile(r.Context(), claims.UserID, &update)
	if err != nil {
		writeError(w, err)
		return
	}

	log.WithField("userID", updated.ID.Hex()).Info("User profile updated successfully")
	writeJSON(w, http.StatusOK, updated)
}
