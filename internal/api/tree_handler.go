package api

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/service"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TreeHandler serves folder browsing, breadcrumbs, downloads, exports, and
// recursive deletion.
type TreeHandler struct {
	treeService   service.TreeService
	exportService service.ExportService
	store         storage.ObjectStore
}

func NewTreeHandler(treeService service.TreeService, exportService service.ExportService, store storage.ObjectStore) *TreeHandler {
	return &TreeHandler{
		treeService:   treeService,
		exportService: exportService,
		store:         store,
	}
}

// childResponse flattens a listing entry for the UI: folders carry a children
// flag, files carry extension and upload state.
type childResponse struct {
	ID         primitive.ObjectID `json:"_id"`
	Title      string             `json:"title"`
	Kind       service.NodeKind   `json:"kind"`
	Children   bool               `json:"children"`
	Extension  string             `json:"extension,omitempty"`
	IsUploaded *bool              `json:"isUploaded,omitempty"`
	Key        string             `json:"key,omitempty"`
}

func mapChildren(children []service.Child) []childResponse {
	out := make([]childResponse, 0, len(children))
	for _, child := range children {
		switch child.Kind {
		case service.NodeKindFolder:
			out = append(out, childResponse{
				ID:       child.Folder.ID,
				Title:    child.Folder.Title,
				Kind:     child.Kind,
				Children: child.HasChildren,
			})
		case service.NodeKindFile:
			uploaded := child.File.IsUploaded
			out = append(out, childResponse{
				ID:         child.File.ID,
				Title:      child.File.Name(),
				Kind:       child.Kind,
				Extension:  child.File.Extension,
				IsUploaded: &uploaded,
				Key:        child.File.Storage.Key,
			})
		}
	}
	return out
}

// ListChildren handles GET /:parentId?search=&order=
func (h *TreeHandler) ListChildren(c *gin.Context) {
	parentID, err := primitive.ObjectIDFromHex(c.Param("parentId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parent ID format.")
		return
	}

	opts := service.ListOptions{
		Search:     c.Query("search"),
		Descending: c.Query("order") == "desc",
	}

	children, err := h.treeService.ListChildren(c.Request.Context(), parentID, opts)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list folder contents.")
		return
	}
	c.JSON(http.StatusOK, mapChildren(children))
}

// Breadcrumb handles GET /breadcrumb/:folderId
func (h *TreeHandler) Breadcrumb(c *gin.Context) {
	nodeID, err := primitive.ObjectIDFromHex(c.Param("folderId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid node ID format.")
		return
	}

	crumbs, err := h.treeService.Breadcrumb(c.Request.Context(), nodeID)
	if err != nil {
		if errors.Is(err, service.ErrNodeNotFound) {
			abortWithError(c, http.StatusNotFound, "Folder or file not found.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to build breadcrumb.")
		return
	}
	if crumbs == nil {
		crumbs = []service.Crumb{}
	}
	c.JSON(http.StatusOK, crumbs)
}

// DownloadFile handles GET /download/file?key=&downloadFile=
// With downloadFile=true the client is redirected to a presigned URL;
// otherwise the payload is returned inline as base64.
func (h *TreeHandler) DownloadFile(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "key is required.")
		return
	}

	if c.Query("downloadFile") == "true" {
		url, err := h.store.PresignDownload(c.Request.Context(), key, 15*time.Minute)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Failed to presign download.")
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	data, err := h.store.GetObject(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			abortWithError(c, http.StatusNotFound, "Object not found.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch object.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"base64":      base64.StdEncoding.EncodeToString(data),
		"contentType": http.DetectContentType(data),
	})
}

// DownloadZip handles GET /download-zip/folder/:folderId
func (h *TreeHandler) DownloadZip(c *gin.Context) {
	rootID, err := primitive.ObjectIDFromHex(c.Param("folderId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid folder ID format.")
		return
	}

	export, err := h.exportService.ExportSubtree(c.Request.Context(), rootID)
	if err != nil {
		if errors.Is(err, service.ErrNodeNotFound) {
			abortWithError(c, http.StatusNotFound, "Folder not found.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to export folder.")
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName}))
	c.Data(http.StatusOK, "application/zip", export.Data)
}

// DeleteChildren handles DELETE /delete-all-folders/:parentId. It empties the
// folder but keeps it.
func (h *TreeHandler) DeleteChildren(c *gin.Context) {
	parentID, err := primitive.ObjectIDFromHex(c.Param("parentId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parent ID format.")
		return
	}

	if err := h.treeService.DeleteChildren(c.Request.Context(), parentID); err != nil {
		if errors.Is(err, service.ErrNodeNotFound) {
			abortWithError(c, http.StatusNotFound, "Folder not found.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete folder contents.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteNode handles DELETE /delete-folder-file/:id. Folders are removed
// recursively, files individually.
func (h *TreeHandler) DeleteNode(c *gin.Context) {
	nodeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid node ID format.")
		return
	}

	if err := h.treeService.DeleteRecursive(c.Request.Context(), nodeID); err != nil {
		if errors.Is(err, service.ErrNodeNotFound) {
			abortWithError(c, http.StatusNotFound, "Folder or file not found.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete node.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
