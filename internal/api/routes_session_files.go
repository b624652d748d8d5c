package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-dev/codecraft/internal/handlers"
)

func registerSessionFileRoutes(api *gin.RouterGroup, handler *handlers.SessionFileHandler, requireAuth gin.HandlerFunc) {
	if handler == nil {
		return
	}

	files := api.Group("/sessions/:sessionKey")
	files.Use(requireAuth)
	files.GET("/files", handler.ListTree)
	files.POST("/files", handler.CreateFile)
	files.POST("/folders", handler.CreateFolder)
	files.PATCH("/files/:fileID", handler.RenameFile)
	files.PUT("/files/:fileID/content", handler.UpdateFileContent)
	files.DELETE("/files/:fileID", handler.DeleteFile)
	files.DELETE("/folders/:folderID", handler.DeleteFolder)
}
