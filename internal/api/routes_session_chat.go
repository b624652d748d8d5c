package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSessionChatRoutes(api *gin.RouterGroup, handler *handlers.SessionChatHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	sessions := api.Group("/sessions")
	sessions.GET("/:sessionKey/chat", requireAuth, handler.ListMessages)
	sessions.POST("/:sessionKey/chat", requireAuth, handler.PostMessage)
}
