package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pranav-ddreg/vitalic-docstore/internal/service"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadHandler serves the multipart upload protocol, job polling, and object
// metadata lookups.
type UploadHandler struct {
	uploadService service.UploadService
	ingestService service.IngestService
	store         storage.ObjectStore
}

func NewUploadHandler(uploadService service.UploadService, ingestService service.IngestService, store storage.ObjectStore) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		ingestService: ingestService,
		store:         store,
	}
}

// --- DTOs ---

type completedPartDTO struct {
	ETag       string `json:"ETag" binding:"required"`
	PartNumber int32  `json:"PartNumber" binding:"required,min=1"`
}

func mapParts(parts []completedPartDTO) []storage.CompletedPart {
	out := make([]storage.CompletedPart, 0, len(parts))
	for _, p := range parts {
		out = append(out, storage.CompletedPart{ETag: p.ETag, PartNumber: p.PartNumber})
	}
	return out
}

type completeMultipartRequest struct {
	Key      string             `json:"key" binding:"required"`
	UploadID string             `json:"uploadId" binding:"required"`
	Parts    []completedPartDTO `json:"parts" binding:"required,min=1"`
	ParentID string             `json:"parentId" binding:"required"`
	FileName string             `json:"fileName" binding:"required"`
}

type abortRequest struct {
	Key      string `json:"key" binding:"required"`
	UploadID string `json:"uploadId" binding:"required"`
}

type presignUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType"`
}

type partURLsRequest struct {
	Key       string `json:"key" binding:"required"`
	UploadID  string `json:"uploadId" binding:"required"`
	PartCount int32  `json:"partCount" binding:"required,min=1"`
}

type completeDirectRequest struct {
	Key      string             `json:"key" binding:"required"`
	UploadID string             `json:"uploadId" binding:"required"`
	Parts    []completedPartDTO `json:"parts" binding:"required,min=1"`
	ParentID string             `json:"parentId" binding:"required"`
	FileName string             `json:"fileName" binding:"required"`
}

// --- Archive multipart protocol ---

// InitiateUpload handles GET /pre-signed-url/:filename?contentType=
func (h *UploadHandler) InitiateUpload(c *gin.Context) {
	filename := c.Param("filename")
	contentType := c.Query("contentType")

	session, err := h.uploadService.Initiate(c.Request.Context(), filename, contentType)
	if err != nil {
		h.serviceError(c, err, "Failed to initiate upload.")
		return
	}
	c.JSON(http.StatusOK, session)
}

// PresignPart handles GET /pre-signed-part-url?key=&uploadId=&partNumber=
func (h *UploadHandler) PresignPart(c *gin.Context) {
	key := c.Query("key")
	uploadID := c.Query("uploadId")
	partNumber, err := strconv.ParseInt(c.Query("partNumber"), 10, 32)
	if err != nil || partNumber < 1 {
		abortWithError(c, http.StatusBadRequest, "partNumber must be a positive integer.")
		return
	}
	if key == "" || uploadID == "" {
		abortWithError(c, http.StatusBadRequest, "key and uploadId are required.")
		return
	}

	url, err := h.uploadService.PresignPart(c.Request.Context(), key, uploadID, int32(partNumber))
	if err != nil {
		h.serviceError(c, err, "Failed to presign part upload.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CompleteUpload handles POST /complete-multipart-upload
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	var req completeMultipartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	parentID, err := primitive.ObjectIDFromHex(req.ParentID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parentId format.")
		return
	}
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	result, err := h.uploadService.Complete(c.Request.Context(), service.CompleteArchiveInput{
		Key:       req.Key,
		UploadID:  req.UploadID,
		Parts:     mapParts(req.Parts),
		ParentID:  parentID,
		FileName:  req.FileName,
		OwnerID:   ownerID,
		CompanyID: getCompanyIDFromContext(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrUploadBusy) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.serviceError(c, err, "Failed to complete upload.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location":       result.Location,
		"key":            result.Key,
		"bucket":         result.Bucket,
		"message":        "Upload completed, extraction scheduled.",
		"jobId":          result.JobID,
		"rootFolderId":   result.RootFolderID,
		"rootFolderName": result.RootFolderName,
	})
}

// AbortUpload handles POST /abort-multipart-upload
func (h *UploadHandler) AbortUpload(c *gin.Context) {
	var req abortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.uploadService.Abort(c.Request.Context(), req.Key, req.UploadID); err != nil {
		h.serviceError(c, err, "Failed to abort upload.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// JobStatus handles GET /job-status/:jobId
func (h *UploadHandler) JobStatus(c *gin.Context) {
	jobID, err := primitive.ObjectIDFromHex(c.Param("jobId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid job ID format.")
		return
	}

	status, err := h.ingestService.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			abortWithError(c, http.StatusNotFound, "Job not found.")
			return
		}
		h.serviceError(c, err, "Failed to read job status.")
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListJobs handles GET /jobs
func (h *UploadHandler) ListJobs(c *gin.Context) {
	ownerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	jobsList, err := h.ingestService.ListJobs(c.Request.Context(), ownerID)
	if err != nil {
		h.serviceError(c, err, "Failed to list jobs.")
		return
	}
	c.JSON(http.StatusOK, jobsList)
}

// ObjectSize handles GET /size/*key
func (h *UploadHandler) ObjectSize(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "key is required.")
		return
	}

	info, err := h.store.HeadObject(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			abortWithError(c, http.StatusNotFound, "Object not found.")
			return
		}
		h.serviceError(c, err, "Failed to read object metadata.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":           key,
		"size":          info.Size,
		"formattedSize": formatBytes(info.Size),
		"lastModified":  info.LastModified,
		"etag":          info.ETag,
	})
}

// --- Direct (single-file) upload protocol ---

// PresignDirectUpload handles POST /presign-upload
func (h *UploadHandler) PresignDirectUpload(c *gin.Context) {
	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.uploadService.InitiateDirect(c.Request.Context(), req.FileName, req.ContentType)
	if err != nil {
		h.serviceError(c, err, "Failed to initiate upload.")
		return
	}
	c.JSON(http.StatusOK, session)
}

// DirectPartURLs handles POST /get-upload-part-urls
func (h *UploadHandler) DirectPartURLs(c *gin.Context) {
	var req partURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	urls := make([]string, 0, req.PartCount)
	for part := int32(1); part <= req.PartCount; part++ {
		url, err := h.uploadService.PresignPart(c.Request.Context(), req.Key, req.UploadID, part)
		if err != nil {
			h.serviceError(c, err, "Failed to presign part uploads.")
			return
		}
		urls = append(urls, url)
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}

// CompleteDirectUpload handles POST /complete-upload
func (h *UploadHandler) CompleteDirectUpload(c *gin.Context) {
	var req completeDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	parentID, err := primitive.ObjectIDFromHex(req.ParentID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parentId format.")
		return
	}

	file, err := h.uploadService.CompleteDirect(c.Request.Context(), service.CompleteDirectInput{
		Key:      req.Key,
		UploadID: req.UploadID,
		Parts:    mapParts(req.Parts),
		ParentID: parentID,
		FileName: req.FileName,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidParent) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.serviceError(c, err, "Failed to complete upload.")
		return
	}
	c.JSON(http.StatusOK, file)
}

// AbortDirectUpload handles POST /abort-upload
func (h *UploadHandler) AbortDirectUpload(c *gin.Context) {
	h.AbortUpload(c)
}

// serviceError hides internals behind a generic 500; the cause is logged at
// the storage/service layer.
func (h *UploadHandler) serviceError(c *gin.Context, err error, message string) {
	if errors.Is(err, storage.ErrStoreUnavailable) {
		abortWithError(c, http.StatusBadGateway, message)
		return
	}
	abortWithError(c, http.StatusInternalServerError, message)
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
