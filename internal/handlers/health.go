package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/pkg/response"
)

// Health returns a simple status payload useful for readiness checks.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(requestContext(c)) != nil {
				status = "degraded"
			}
		}

		if status != "ok" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": status})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": status})
	}
}
