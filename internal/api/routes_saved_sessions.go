package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSavedSessionRoutes(api *gin.RouterGroup, handler *handlers.SavedSessionHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	saved := api.Group("/saved-sessions")
	saved.Use(requireAuth)
	saved.POST("", handler.Save)
	saved.GET("", handler.List)
	saved.GET("/:id", handler.Get)
	saved.PATCH("/:id", handler.Update)
	saved.DELETE("/:id", handler.Delete)
	saved.POST("/:id/load", handler.Load)
}
