package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad input")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InsufficientStock("rice")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Authorization("not yours")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("gone")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("already decided")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Storage("query failed", errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain error")))
}

func TestPublicMessageMasksStorageCause(t *testing.T) {
	err := Storage("query failed", errors.New("connection refused at 10.0.0.5"))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Contains(t, err.Error(), "connection refused", "cause stays available for logs")

	assert.Equal(t, "bad input", PublicMessage(Validation("bad input")))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("plain error")))
}

func TestIsKindSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("approve request: %w", Conflict("already decided"))
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("plain error"), KindConflict))
}
