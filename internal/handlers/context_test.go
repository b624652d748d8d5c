package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecraft-dev/codecraft/internal/execution"
	"github.com/codecraft-dev/codecraft/internal/services"
)

func TestServiceError_SentinelMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"session not found", services.ErrSessionNotFound, http.StatusNotFound},
		{"not owner", services.ErrNotSessionOwner, http.StatusForbidden},
		{"private", services.ErrSessionPrivate, http.StatusForbidden},
		{"not participant", services.ErrNotParticipant, http.StatusForbidden},
		{"read only", services.ErrReadOnlyParticipant, http.StatusForbidden},
		{"already saved", services.ErrAlreadySaved, http.StatusConflict},
		{"duplicate name", services.ErrDuplicateName, http.StatusConflict},
		{"chat disabled", services.ErrChatDisabled, http.StatusBadRequest},
		{"pro required", services.ErrProRequired, http.StatusPaymentRequired},
		{"sandbox down", execution.ErrSandboxUnavailable, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := serviceError(tc.err, "fallback")
			require.Equal(t, tc.status, appErr.StatusCode)
		})
	}
}

func TestServiceError_CapacityDetails(t *testing.T) {
	appErr := serviceError(&services.CapacityError{Resource: "sessions", Current: 2, Limit: 2}, "fallback")
	require.Equal(t, http.StatusConflict, appErr.StatusCode)
	require.Equal(t, 2, appErr.Details["current"])
	require.Equal(t, 2, appErr.Details["limit"])
}

func TestValidatePayload(t *testing.T) {
	payload := struct {
		Title string `json:"title" validate:"max=3"`
	}{Title: "too long"}

	appErr := validatePayload(payload)
	require.NotNil(t, appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	require.Equal(t, "max", appErr.Details["title"])

	payload.Title = "ok"
	require.Nil(t, validatePayload(payload))
}
