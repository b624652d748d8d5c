package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSessionCodeRoutes(api *gin.RouterGroup, handler *handlers.SessionCodeHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	sessions := api.Group("/sessions")
	sessions.PUT("/:sessionKey/code", requireAuth, handler.UpdateCode)
	sessions.GET("/:sessionKey/operations", requireAuth, handler.ListOperations)
}
