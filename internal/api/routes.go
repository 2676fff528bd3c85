package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts the file-manager API. Archive upload, job inspection and
// object metadata live under /api/v1/file-manager; folder browsing and
// deletion live under /api/v1/folders so the :parentId route does not collide
// with static siblings in the same method tree.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	uploadHandler *UploadHandler,
	treeHandler *TreeHandler,
) {
	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)

	fileManager := apiV1.Group("/file-manager")
	{
		// Archive multipart protocol.
		fileManager.GET("/pre-signed-url/:filename", uploadHandler.InitiateUpload)
		fileManager.GET("/pre-signed-part-url", uploadHandler.PresignPart)
		fileManager.POST("/complete-multipart-upload", uploadHandler.CompleteUpload)
		fileManager.POST("/abort-multipart-upload", uploadHandler.AbortUpload)

		// Direct (single file) multipart protocol.
		fileManager.POST("/presign-upload", uploadHandler.PresignDirectUpload)
		fileManager.POST("/get-upload-part-urls", uploadHandler.DirectPartURLs)
		fileManager.POST("/complete-upload", uploadHandler.CompleteDirectUpload)
		fileManager.POST("/abort-upload", uploadHandler.AbortDirectUpload)

		// Job inspection.
		fileManager.GET("/job-status/:jobId", uploadHandler.JobStatus)
		fileManager.GET("/jobs", uploadHandler.ListJobs)

		// Object metadata and payload access.
		fileManager.GET("/size/*key", uploadHandler.ObjectSize)
		fileManager.GET("/download/file", treeHandler.DownloadFile)
		fileManager.GET("/download-zip/folder/:folderId", treeHandler.DownloadZip)
		fileManager.GET("/breadcrumb/:folderId", treeHandler.Breadcrumb)
	}

	folders := apiV1.Group("/folders")
	{
		folders.GET("/:parentId", treeHandler.ListChildren)
		folders.DELETE("/delete-all-folders/:parentId", treeHandler.DeleteChildren)
		folders.DELETE("/delete-folder-file/:id", treeHandler.DeleteNode)
	}
}
