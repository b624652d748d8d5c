package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerExecutionRoutes(api *gin.RouterGroup, handler *handlers.ExecutionHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	executions := api.Group("/executions")
	executions.Use(requireAuth)
	executions.POST("", handler.Run)
	executions.GET("", handler.History)
}
