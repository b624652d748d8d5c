package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// SessionFileHandler manages a session's virtual filesystem.
type SessionFileHandler struct {
	files *services.FileService
}

// NewSessionFileHandler constructs a file handler.
func NewSessionFileHandler(files *services.FileService) *SessionFileHandler {
	return &SessionFileHandler{files: files}
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

type createFileRequest struct {
	Name     string  `json:"name"`
	Language string  `json:"language"`
	Content  string  `json:"content"`
	FolderID *string `json:"folder_id"`
}

type renameFileRequest struct {
	Name string `json:"name"`
}

type fileContentRequest struct {
	Content string `json:"content"`
}

// ListTree returns the full folder and file listing for a session.
func (h *SessionFileHandler) ListTree(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	tree, err := h.files.ListTree(requestContext(c), sessionKeyParam(c), userID)
	if err != nil {
		response.Error(c, serviceError(err, "unable to list session files"))
		return
	}

	response.Success(c, http.StatusOK, tree)
}

// CreateFolder adds a directory node to the session tree.
func (h *SessionFileHandler) CreateFolder(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload createFolderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid folder payload"))
		return
	}

	folder, err := h.files.CreateFolder(requestContext(c), sessionKeyParam(c), userID, payload.Name, payload.ParentID)
	if err != nil {
		response.Error(c, serviceError(err, "unable to create folder"))
		return
	}

	response.Success(c, http.StatusCreated, folder)
}

// CreateFile adds a file node to the session tree.
func (h *SessionFileHandler) CreateFile(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload createFileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid file payload"))
		return
	}

	file, err := h.files.CreateFile(requestContext(c), sessionKeyParam(c), userID,
		payload.Name, payload.Language, payload.Content, payload.FolderID)
	if err != nil {
		response.Error(c, serviceError(err, "unable to create file"))
		return
	}

	response.Success(c, http.StatusCreated, file)
}

// RenameFile changes a file's name within its current folder.
func (h *SessionFileHandler) RenameFile(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload renameFileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid rename payload"))
		return
	}

	file, err := h.files.RenameFile(requestContext(c), sessionKeyParam(c), userID,
		strings.TrimSpace(c.Param("fileID")), payload.Name)
	if err != nil {
		response.Error(c, serviceError(err, "unable to rename file"))
		return
	}

	response.Success(c, http.StatusOK, file)
}

// UpdateFileContent replaces a file's content.
func (h *SessionFileHandler) UpdateFileContent(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload fileContentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid file payload"))
		return
	}

	file, err := h.files.UpdateFileContent(requestContext(c), sessionKeyParam(c), userID,
		strings.TrimSpace(c.Param("fileID")), payload.Content)
	if err != nil {
		response.Error(c, serviceError(err, "unable to update file"))
		return
	}

	response.Success(c, http.StatusOK, file)
}

// DeleteFile removes a single file.
func (h *SessionFileHandler) DeleteFile(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.files.DeleteFile(requestContext(c), sessionKeyParam(c), userID,
		strings.TrimSpace(c.Param("fileID"))); err != nil {
		response.Error(c, serviceError(err, "unable to delete file"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DeleteFolder removes a folder and everything beneath it.
func (h *SessionFileHandler) DeleteFolder(c *gin.Context) {
	if h == nil || h.files == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.files.DeleteFolder(requestContext(c), sessionKeyParam(c), userID,
		strings.TrimSpace(c.Param("folderID"))); err != nil {
		response.Error(c, serviceError(err, "unable to delete folder"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func sessionKeyParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("sessionKey"))
}
