package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/execution"
	"github.com/codecraft-dev/codecraft/internal/middleware"
	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/validator"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func currentUserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
}

func currentUserName(c *gin.Context) string {
	name := strings.TrimSpace(c.GetString(middleware.CtxUserNameKey))
	if name == "" {
		name = "Anonymous"
	}
	return name
}

// queryLimit parses the `limit` query parameter, clamping to ceiling and
// falling back to fallback when the parameter is absent or invalid.
func queryLimit(c *gin.Context, fallback, ceiling int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > ceiling {
		return ceiling
	}
	return parsed
}

// validatePayload runs struct validation rules and converts failures into a
// field-keyed validation error.
func validatePayload(payload any) *apperrors.AppError {
	err := validator.ValidateStruct(payload)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if errors.As(err, &failures) {
		details := make(map[string]any, len(failures))
		for _, failure := range failures {
			details[failure.Field] = failure.Tag
		}
		return apperrors.ErrValidation.WithDetails(details)
	}

	return apperrors.ErrValidation
}

// serviceError maps domain errors onto API errors. Unrecognised errors are
// wrapped with the supplied message so internals never leak to clients.
func serviceError(err error, fallback string) *apperrors.AppError {
	if capacity, ok := services.AsCapacityError(err); ok {
		return apperrors.NewCapacityExceeded(capacity.Error(), capacity.Current, capacity.Limit)
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrPresenceSessionNotFound),
		errors.Is(err, services.ErrSavedSessionNotFound),
		errors.Is(err, services.ErrSnippetNotFound),
		errors.Is(err, services.ErrFileNotFound),
		errors.Is(err, services.ErrFolderNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return apperrors.ErrNotFound

	case errors.Is(err, services.ErrNotSessionOwner),
		errors.Is(err, services.ErrSessionPrivate),
		errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrReadOnlyParticipant),
		errors.Is(err, services.ErrSavedSessionAccessDenied),
		errors.Is(err, services.ErrNotSnippetOwner):
		return apperrors.ErrForbidden

	case errors.Is(err, services.ErrAlreadySaved):
		return apperrors.NewDuplicate("session is already saved")
	case errors.Is(err, services.ErrDuplicateName):
		return apperrors.NewDuplicate("a file or folder with this name already exists")

	case errors.Is(err, services.ErrChatDisabled),
		errors.Is(err, services.ErrEmptyChatMessage),
		errors.Is(err, services.ErrChatMessageTooLong),
		errors.Is(err, services.ErrLanguageUnsupported):
		return apperrors.NewBadRequest(trimServicePrefix(err.Error()))

	case errors.Is(err, services.ErrProRequired):
		return apperrors.New("PRO_REQUIRED", "A Pro subscription is required to run this language", http.StatusPaymentRequired)

	case errors.Is(err, execution.ErrSandboxUnavailable):
		return apperrors.New("SANDBOX_UNAVAILABLE", "Code execution is temporarily unavailable", http.StatusBadGateway)
	}

	return apperrors.Wrap(err, fallback)
}

// trimServicePrefix strips the internal "<name> service:" prefix from sentinel
// messages before they are shown to clients.
func trimServicePrefix(message string) string {
	if idx := strings.Index(message, "service: "); idx >= 0 {
		return message[idx+len("service: "):]
	}
	return message
}
