package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// SessionHandler exposes the live session lifecycle endpoints.
type SessionHandler struct {
	collab   *services.CollabService
	presence *services.PresenceService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(collab *services.CollabService, presence *services.PresenceService) *SessionHandler {
	return &SessionHandler{collab: collab, presence: presence}
}

type createSessionRequest struct {
	Name     string                  `json:"name" validate:"max=120"`
	Language string                  `json:"language" validate:"max=32"`
	Code     string                  `json:"code"`
	IsPublic bool                    `json:"is_public"`
	MaxUsers int                     `json:"max_users" validate:"gte=0,lte=100"`
	Settings *models.SessionSettings `json:"settings"`
}

type updateSessionRequest struct {
	Name     *string                 `json:"name"`
	Language *string                 `json:"language"`
	IsPublic *bool                   `json:"is_public"`
	MaxUsers *int                    `json:"max_users"`
	Settings *models.SessionSettings `json:"settings"`
}

type setPermissionRequest struct {
	Permission string `json:"permission"`
}

// Create starts a new live session owned by the caller.
func (h *SessionHandler) Create(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload createSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid session payload"))
		return
	}
	if vErr := validatePayload(payload); vErr != nil {
		response.Error(c, vErr)
		return
	}

	session, err := h.collab.CreateSession(requestContext(c), services.CreateSessionParams{
		OwnerID:   userID,
		OwnerName: currentUserName(c),
		Name:      payload.Name,
		Language:  payload.Language,
		Code:      payload.Code,
		IsPublic:  payload.IsPublic,
		MaxUsers:  payload.MaxUsers,
		Settings:  payload.Settings,
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to create session"))
		return
	}

	response.Success(c, http.StatusCreated, toSessionDTO(session))
}

// Get returns a single session. Private sessions require membership.
func (h *SessionHandler) Get(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if sessionKey == "" {
		response.Error(c, apperrors.NewBadRequest("session key is required"))
		return
	}

	session, err := h.collab.GetSession(requestContext(c), sessionKey, currentUserID(c))
	if err != nil {
		response.Error(c, serviceError(err, "unable to load session"))
		return
	}

	response.Success(c, http.StatusOK, toSessionDTO(session))
}

// ListPublic returns joinable public sessions.
func (h *SessionHandler) ListPublic(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	sessions, err := h.collab.ListPublicSessions(requestContext(c), queryLimit(c, 50, 100))
	if err != nil {
		response.Error(c, serviceError(err, "unable to list public sessions"))
		return
	}

	response.Success(c, http.StatusOK, toSessionDTOs(sessions))
}

// ListMine returns every live session the caller owns.
func (h *SessionHandler) ListMine(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessions, err := h.collab.ListOwnedSessions(requestContext(c), userID)
	if err != nil {
		response.Error(c, serviceError(err, "unable to list sessions"))
		return
	}

	response.Success(c, http.StatusOK, toSessionDTOs(sessions))
}

// Join adds the caller to a session, reviving it when scheduled for deletion.
func (h *SessionHandler) Join(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	session, err := h.collab.JoinSession(requestContext(c), sessionKey, userID, currentUserName(c))
	if err != nil {
		response.Error(c, serviceError(err, "unable to join session"))
		return
	}

	response.Success(c, http.StatusOK, toSessionDTO(session))
}

// Leave removes the caller from a session's live set.
func (h *SessionHandler) Leave(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if err := h.collab.LeaveSession(requestContext(c), sessionKey, userID); err != nil {
		response.Error(c, serviceError(err, "unable to leave session"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"left": true})
}

// Heartbeat refreshes the caller's liveness clock within a session.
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	if h == nil || h.presence == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if err := h.presence.Heartbeat(requestContext(c), sessionKey, userID); err != nil {
		response.Error(c, serviceError(err, "unable to record heartbeat"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"alive": true})
}

// Update applies owner-only edits to session metadata and settings.
func (h *SessionHandler) Update(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload updateSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid session payload"))
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	session, err := h.collab.UpdateSession(requestContext(c), sessionKey, userID, services.UpdateSessionInput{
		Name:     payload.Name,
		Language: payload.Language,
		IsPublic: payload.IsPublic,
		MaxUsers: payload.MaxUsers,
		Settings: payload.Settings,
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to update session"))
		return
	}

	response.Success(c, http.StatusOK, toSessionDTO(session))
}

// SetPermission changes a participant's access level. Owner only.
func (h *SessionHandler) SetPermission(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	targetID := strings.TrimSpace(c.Param("userID"))
	if targetID == "" {
		response.Error(c, apperrors.NewBadRequest("target user id is required"))
		return
	}

	var payload setPermissionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid permission payload"))
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if err := h.collab.SetPermission(requestContext(c), sessionKey, userID, targetID, payload.Permission); err != nil {
		response.Error(c, serviceError(err, "unable to update permission"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete tears a session down immediately. Owner only.
func (h *SessionHandler) Delete(c *gin.Context) {
	if h == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if err := h.collab.DeleteSession(requestContext(c), sessionKey, userID); err != nil {
		response.Error(c, serviceError(err, "unable to delete session"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type participantDTO struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Permission string    `json:"permission"`
	IsActive   bool      `json:"is_active"`
	JoinedAt   time.Time `json:"joined_at"`
}

type sessionDTO struct {
	SessionKey   string                 `json:"session_key"`
	OwnerUserID  string                 `json:"owner_user_id"`
	Name         string                 `json:"name"`
	Language     string                 `json:"language"`
	Code         string                 `json:"code"`
	IsPublic     bool                   `json:"is_public"`
	MaxUsers     int                    `json:"max_users"`
	Status       string                 `json:"status"`
	ActiveUsers  []string               `json:"active_users"`
	LastActivity time.Time              `json:"last_activity"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	Settings     models.SessionSettings `json:"settings"`
	Participants []participantDTO       `json:"participants,omitempty"`
}

func toSessionDTO(session *models.CollabSession) sessionDTO {
	dto := sessionDTO{
		SessionKey:   session.SessionKey,
		OwnerUserID:  session.OwnerUserID,
		Name:         session.Name,
		Language:     session.Language,
		Code:         session.Code,
		IsPublic:     session.IsPublic,
		MaxUsers:     session.MaxUsers,
		Status:       session.Status,
		ActiveUsers:  append([]string{}, session.ActiveUsers...),
		LastActivity: session.LastActivity,
		ExpiresAt:    session.ExpiresAt,
		Settings:     session.Settings,
	}

	for _, p := range session.Participants {
		dto.Participants = append(dto.Participants, participantDTO{
			UserID:     p.UserID,
			Name:       p.Name,
			Permission: p.Permission,
			IsActive:   p.IsActive,
			JoinedAt:   p.JoinedAt,
		})
	}

	return dto
}

func toSessionDTOs(sessions []models.CollabSession) []sessionDTO {
	dtos := make([]sessionDTO, 0, len(sessions))
	for i := range sessions {
		dtos = append(dtos, toSessionDTO(&sessions[i]))
	}
	return dtos
}
