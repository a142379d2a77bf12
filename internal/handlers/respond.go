package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/donenme/donenme-api/internal/apperr"
	"github.com/sirupsen/logrus"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps a service error to its client-facing status and message.
// Storage faults are logged with their cause but surfaced generically.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("Internal error")
	}
	writeJSON(w, status, map[string]string{"message": apperr.PublicMessage(err)})
}
