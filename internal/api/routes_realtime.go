package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerRealtimeRoutes(api *gin.RouterGroup, handler *handlers.RealtimeHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	api.GET("/sessions/:sessionKey/ws", requireAuth, handler.Stream)
}
