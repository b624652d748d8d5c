package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// SavedSessionHandler manages permanent snapshots of live sessions.
type SavedSessionHandler struct {
	saved *services.SavedSessionService
}

// NewSavedSessionHandler constructs a saved session handler.
func NewSavedSessionHandler(saved *services.SavedSessionService) *SavedSessionHandler {
	return &SavedSessionHandler{saved: saved}
}

type saveSessionRequest struct {
	SessionKey string   `json:"session_key"`
	Name       string   `json:"name"`
	Tags       []string `json:"tags"`
	IsPrivate  *bool    `json:"is_private"`
}

type updateSavedSessionRequest struct {
	Name      *string  `json:"name"`
	Code      *string  `json:"code"`
	Language  *string  `json:"language"`
	Tags      []string `json:"tags"`
	IsPrivate *bool    `json:"is_private"`
}

type loadSavedSessionRequest struct {
	IsPublic bool `json:"is_public"`
}

// Save snapshots a live session into the caller's saved list. Re-saving a
// session that was loaded from a snapshot updates the original in place.
func (h *SavedSessionHandler) Save(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload saveSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid save payload"))
		return
	}
	if strings.TrimSpace(payload.SessionKey) == "" {
		response.Error(c, apperrors.NewBadRequest("session key is required"))
		return
	}

	snapshot, err := h.saved.Save(requestContext(c), services.SaveSessionParams{
		OwnerID:    userID,
		SessionKey: payload.SessionKey,
		Name:       payload.Name,
		Tags:       payload.Tags,
		IsPrivate:  payload.IsPrivate,
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to save session"))
		return
	}

	response.Success(c, http.StatusCreated, snapshot)
}

// List returns the caller's saved sessions.
func (h *SavedSessionHandler) List(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	snapshots, err := h.saved.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, serviceError(err, "unable to list saved sessions"))
		return
	}

	response.Success(c, http.StatusOK, snapshots)
}

// Get returns one saved session. Private snapshots require ownership.
func (h *SavedSessionHandler) Get(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	snapshot, err := h.saved.Get(requestContext(c), strings.TrimSpace(c.Param("id")), currentUserID(c))
	if err != nil {
		response.Error(c, serviceError(err, "unable to load saved session"))
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// Update edits a saved session's snapshot fields. Owner only.
func (h *SavedSessionHandler) Update(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload updateSavedSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid update payload"))
		return
	}

	snapshot, err := h.saved.Update(requestContext(c), strings.TrimSpace(c.Param("id")), userID, services.UpdateSavedSessionInput{
		Name:      payload.Name,
		Code:      payload.Code,
		Language:  payload.Language,
		Tags:      payload.Tags,
		IsPrivate: payload.IsPrivate,
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to update saved session"))
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// Delete removes a saved session. Owner only.
func (h *SavedSessionHandler) Delete(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.saved.Delete(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, serviceError(err, "unable to delete saved session"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Load spins a saved session back up as a new live session owned by the caller.
func (h *SavedSessionHandler) Load(c *gin.Context) {
	if h == nil || h.saved == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload loadSavedSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, apperrors.NewBadRequest("invalid load payload"))
		return
	}

	session, err := h.saved.LoadAsLive(requestContext(c), strings.TrimSpace(c.Param("id")), userID, payload.IsPublic)
	if err != nil {
		response.Error(c, serviceError(err, "unable to load saved session"))
		return
	}

	response.Success(c, http.StatusCreated, toSessionDTO(session))
}
