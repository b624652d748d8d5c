package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/realtime"
	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into per-session WebSocket streams.
type RealtimeHandler struct {
	hub    *realtime.Hub
	collab *services.CollabService
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub, collab *services.CollabService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, collab: collab}
}

// Stream subscribes the caller to a session's event stream. Authentication has
// already happened in middleware; visibility follows the same rules as reads,
// so private sessions only stream to their members.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h == nil || h.hub == nil || h.collab == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	if sessionKey == "" {
		response.Error(c, apperrors.NewBadRequest("session key is required"))
		return
	}

	if _, err := h.collab.GetSession(requestContext(c), sessionKey, userID); err != nil {
		response.Error(c, serviceError(err, "unable to open session stream"))
		return
	}

	stream := realtime.SessionStream(sessionKey)
	allowed := map[string]struct{}{stream: {}}
	h.hub.Serve(userID, []string{stream}, allowed, c.Writer, c.Request)
}
