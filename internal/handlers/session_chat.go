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

// SessionChatHandler exposes endpoints for posting and listing session chat messages.
type SessionChatHandler struct {
	chats *services.ChatService
}

// NewSessionChatHandler constructs a chat handler.
func NewSessionChatHandler(chats *services.ChatService) *SessionChatHandler {
	return &SessionChatHandler{chats: chats}
}

type chatMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage persists a chat message for the specified session.
func (h *SessionChatHandler) PostMessage(c *gin.Context) {
	if h == nil || h.chats == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload chatMessageRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid chat message payload"))
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	message, err := h.chats.PostMessage(requestContext(c), sessionKey, userID, currentUserName(c), payload.Content)
	if err != nil {
		response.Error(c, serviceError(err, "unable to post chat message"))
		return
	}

	response.Success(c, http.StatusCreated, toChatMessageDTO(message.ID, message.UserID, message.UserName, message.Content, message.CreatedAt))
}

// ListMessages returns chat history for a session, oldest first.
func (h *SessionChatHandler) ListMessages(c *gin.Context) {
	if h == nil || h.chats == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	sessionKey := strings.TrimSpace(c.Param("sessionKey"))
	messages, err := h.chats.ListMessages(requestContext(c), sessionKey, queryLimit(c, 100, 500))
	if err != nil {
		response.Error(c, serviceError(err, "unable to list chat messages"))
		return
	}

	dtos := make([]chatMessageDTO, 0, len(messages))
	for _, msg := range messages {
		dtos = append(dtos, toChatMessageDTO(msg.ID, msg.UserID, msg.UserName, msg.Content, msg.CreatedAt))
	}

	response.Success(c, http.StatusOK, dtos)
}

type chatMessageDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toChatMessageDTO(id, userID, userName, content string, createdAt time.Time) chatMessageDTO {
	return chatMessageDTO{
		ID:        id,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		CreatedAt: createdAt,
	}
}
