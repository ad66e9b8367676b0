package api

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/database"
	"rentpilot/internal/documents"
)

// Largest accepted upload
const maxUploadSize = 25 << 20

func (h *Handler) documentError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, documents.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, documents.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Document access denied"})
	case errors.Is(err, documents.ErrInvalidDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document"})
	default:
		h.logger.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func (h *Handler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	doc, err := h.documents.Upload(c.Request.Context(), documents.UploadRequest{
		OwnerID:     sessionFrom(c).UserID,
		LeaseID:     c.PostForm("lease_id"),
		PropertyID:  c.PostForm("property_id"),
		Name:        name,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	})
	if err != nil {
		h.documentError(c, err, "upload document")
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context(), sessionFrom(c).UserID, database.DocumentFilter{
		LeaseID:    c.Query("lease_id"),
		PropertyID: c.Query("property_id"),
	})
	if err != nil {
		h.documentError(c, err, "list documents")
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.documents.Remove(c.Request.Context(), sessionFrom(c).UserID, c.Param("id")); err != nil {
		h.documentError(c, err, "delete document")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DocumentURL(c *gin.Context) {
	url, err := h.documents.SignedURL(c.Request.Context(), sessionFrom(c).UserID, c.Param("id"))
	if err != nil {
		h.documentError(c, err, "sign document URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ServeFile streams a locally stored document. The token in the path is
// the only credential.
func (h *Handler) ServeFile(c *gin.Context) {
	rc, key, err := h.documents.Open(c.Param("token"))
	switch {
	case errors.Is(err, documents.ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired link"})
		return
	case errors.Is(err, documents.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	case errors.Is(err, documents.ErrNotServable):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to open file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": "attachment; filename=\"" + filepath.Base(key) + "\"",
	})
}
