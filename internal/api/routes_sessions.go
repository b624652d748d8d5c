package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSessionRoutes(api *gin.RouterGroup, handler *handlers.SessionHandler, requireAuth, optionalAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	sessions := api.Group("/sessions")
	sessions.GET("/public", optionalAuth, handler.ListPublic)
	sessions.GET("/mine", requireAuth, handler.ListMine)
	sessions.POST("", requireAuth, handler.Create)
	sessions.GET("/:sessionKey", optionalAuth, handler.Get)
	sessions.PATCH("/:sessionKey", requireAuth, handler.Update)
	sessions.DELETE("/:sessionKey", requireAuth, handler.Delete)
	sessions.POST("/:sessionKey/join", requireAuth, handler.Join)
	sessions.POST("/:sessionKey/leave", requireAuth, handler.Leave)
	sessions.POST("/:sessionKey/heartbeat", requireAuth, handler.Heartbeat)
	sessions.PUT("/:sessionKey/participants/:userID/permission", requireAuth, handler.SetPermission)
}
