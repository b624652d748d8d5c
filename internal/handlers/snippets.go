package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// SnippetHandler exposes the public snippet gallery.
type SnippetHandler struct {
	snippets *services.SnippetService
}

// NewSnippetHandler constructs a snippet handler.
func NewSnippetHandler(snippets *services.SnippetService) *SnippetHandler {
	return &SnippetHandler{snippets: snippets}
}

type shareSnippetRequest struct {
	Title    string `json:"title" validate:"max=160"`
	Language string `json:"language" validate:"max=32"`
	Code     string `json:"code" validate:"required"`
}

type snippetCommentRequest struct {
	Content string `json:"content"`
}

// Share publishes a snippet to the gallery.
func (h *SnippetHandler) Share(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload shareSnippetRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid snippet payload"))
		return
	}
	if vErr := validatePayload(payload); vErr != nil {
		response.Error(c, vErr)
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		response.Error(c, apperrors.NewBadRequest("snippet code is required"))
		return
	}

	snippet, err := h.snippets.Share(requestContext(c), services.ShareSnippetParams{
		UserID:   userID,
		UserName: currentUserName(c),
		Title:    payload.Title,
		Language: payload.Language,
		Code:     payload.Code,
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to share snippet"))
		return
	}

	response.Success(c, http.StatusCreated, snippet)
}

// List browses the gallery with optional language and author filters.
func (h *SnippetHandler) List(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	snippets, err := h.snippets.List(requestContext(c), services.SnippetListFilter{
		Language: strings.TrimSpace(c.Query("language")),
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Limit:    queryLimit(c, 50, 100),
	})
	if err != nil {
		response.Error(c, serviceError(err, "unable to list snippets"))
		return
	}

	response.Success(c, http.StatusOK, snippets)
}

// Get returns one snippet with its comments.
func (h *SnippetHandler) Get(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	snippet, err := h.snippets.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, serviceError(err, "unable to load snippet"))
		return
	}

	stars, err := h.snippets.StarCount(requestContext(c), id)
	if err != nil {
		response.Error(c, serviceError(err, "unable to load snippet"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snippet": snippet, "stars": stars})
}

// Delete removes a snippet. Owner only.
func (h *SnippetHandler) Delete(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.snippets.Delete(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, serviceError(err, "unable to delete snippet"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// AddComment attaches a comment to a snippet.
func (h *SnippetHandler) AddComment(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload snippetCommentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid comment payload"))
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		response.Error(c, apperrors.NewBadRequest("comment content is required"))
		return
	}

	comment, err := h.snippets.AddComment(requestContext(c), strings.TrimSpace(c.Param("id")), userID, currentUserName(c), payload.Content)
	if err != nil {
		response.Error(c, serviceError(err, "unable to add comment"))
		return
	}

	response.Success(c, http.StatusCreated, comment)
}

// Star marks the snippet as starred by the caller. Idempotent.
func (h *SnippetHandler) Star(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.snippets.Star(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, serviceError(err, "unable to star snippet"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"starred": true})
}

// Unstar removes the caller's star.
func (h *SnippetHandler) Unstar(c *gin.Context) {
	if h == nil || h.snippets == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.snippets.Unstar(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, serviceError(err, "unable to unstar snippet"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"starred": false})
}
