package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSnippetRoutes(api *gin.RouterGroup, handler *handlers.SnippetHandler, requireAuth, optionalAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	snippets := api.Group("/snippets")
	snippets.GET("", optionalAuth, handler.List)
	snippets.GET("/:id", optionalAuth, handler.Get)
	snippets.POST("", requireAuth, handler.Share)
	snippets.DELETE("/:id", requireAuth, handler.Delete)
	snippets.POST("/:id/comments", requireAuth, handler.AddComment)
	snippets.PUT("/:id/star", requireAuth, handler.Star)
	snippets.DELETE("/:id/star", requireAuth, handler.Unstar)
}
