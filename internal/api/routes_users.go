package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	api.GET("/users/me", requireAuth, handler.Me)
}
