package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerBillingRoutes(r *gin.Engine, handler *handlers.BillingHandler) {
	if handler == nil {
		return
	}

	r.POST("/api/billing/webhook", handler.Webhook)
}
