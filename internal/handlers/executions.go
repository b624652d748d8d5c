package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// ExecutionHandler runs code in the sandbox and serves execution history.
type ExecutionHandler struct {
	executions *services.ExecutionService
}

// NewExecutionHandler constructs an execution handler.
func NewExecutionHandler(executions *services.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executions: executions}
}

type runCodeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// Run submits code to the sandbox and records the outcome. A non-zero exit
// code is a successful run; only sandbox failures surface as errors.
func (h *ExecutionHandler) Run(c *gin.Context) {
	if h == nil || h.executions == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload runCodeRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid execution payload"))
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		response.Error(c, apperrors.NewBadRequest("code is required"))
		return
	}

	record, err := h.executions.Run(requestContext(c), services.RunCodeParams{
		UserID:   userID,
		Language: payload.Language,
		Code:     payload.Code,
		Stdin:    payload.Stdin,
	})
	if err != nil {
		// Sandbox failures are still recorded in history before surfacing.
		response.Error(c, serviceError(err, "unable to run code"))
		return
	}

	response.Success(c, http.StatusOK, record)
}

// History lists the caller's recent executions, newest first.
func (h *ExecutionHandler) History(c *gin.Context) {
	if h == nil || h.executions == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	records, err := h.executions.History(requestContext(c), userID, queryLimit(c, 20, 100))
	if err != nil {
		response.Error(c, serviceError(err, "unable to list executions"))
		return
	}

	response.Success(c, http.StatusOK, records)
}
