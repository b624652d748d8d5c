package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/middleware"
	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// UserHandler mirrors identity-provider accounts and serves the caller's profile.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me upserts the caller's profile from the verified token and returns it.
// Billing state is preserved across syncs.
func (h *UserHandler) Me(c *gin.Context) {
	if h == nil || h.users == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.Sync(requestContext(c), userID,
		c.GetString(middleware.CtxUserNameKey),
		c.GetString(middleware.CtxUserEmailKey))
	if err != nil {
		response.Error(c, serviceError(err, "unable to load profile"))
		return
	}

	response.Success(c, http.StatusOK, user)
}
