package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// SessionCodeHandler exposes the shared-buffer replication endpoints.
type SessionCodeHandler struct {
	sync *services.CodeSyncService
}

// NewSessionCodeHandler constructs a code replication handler.
func NewSessionCodeHandler(sync *services.CodeSyncService) *SessionCodeHandler {
	return &SessionCodeHandler{sync: sync}
}

type updateCodeRequest struct {
	Code      string                `json:"code"`
	Operation *codeOperationPayload `json:"operation"`
}

type codeOperationPayload struct {
	Kind     string `json:"kind"`
	Position int    `json:"position"`
	Content  string `json:"content"`
	Length   int    `json:"length"`
}

// UpdateCode replaces the session buffer with the caller's copy. Unchanged
// content is acknowledged without being applied.
func (h *SessionCodeHandler) UpdateCode(c *gin.Context) {
	if h == nil || h.sync == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload updateCodeRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid code payload"))
		return
	}

	params := services.UpdateCodeParams{
		SessionKey: strings.TrimSpace(c.Param("sessionKey")),
		UserID:     userID,
		Code:       payload.Code,
	}
	if payload.Operation != nil {
		params.Operation = &services.OperationDescriptor{
			Kind:     payload.Operation.Kind,
			Position: payload.Operation.Position,
			Content:  payload.Operation.Content,
			Length:   payload.Operation.Length,
		}
	}

	result, err := h.sync.UpdateCode(requestContext(c), params)
	if err != nil {
		response.Error(c, serviceError(err, "unable to update code"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"applied":       result.Applied,
		"last_activity": result.Session.LastActivity,
	})
}

// ListOperations returns the recent edit log for a session, newest first.
func (h *SessionCodeHandler) ListOperations(c *gin.Context) {
	if h == nil || h.sync == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	operations, err := h.sync.ListOperations(requestContext(c), sessionKey, queryLimit(c, 50, 200))
	if err != nil {
		response.Error(c, serviceError(err, "unable to list operations"))
		return
	}

	dtos := make([]operationDTO, 0, len(operations))
	for _, op := range operations {
		dtos = append(dtos, operationDTO{
			ID:        op.ID,
			UserID:    op.UserID,
			Kind:      op.Kind,
			Position:  op.Position,
			Content:   op.Content,
			Length:    op.Length,
			CreatedAt: op.CreatedAt,
		})
	}

	response.Success(c, http.StatusOK, dtos)
}

type operationDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Position  int       `json:"position"`
	Content   string    `json:"content,omitempty"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}
