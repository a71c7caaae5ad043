package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/storage"
)

// RestImageHandler serves listing images kept in GridFS.
type RestImageHandler struct {
	blobs storage.BlobReader
}

// NewRestImageHandler creates a new RestImageHandler.
func NewRestImageHandler(blobs storage.BlobReader) *RestImageHandler {
	return &RestImageHandler{blobs: blobs}
}

// GetImage handles GET /v1/images/:id
func (h *RestImageHandler) GetImage(c *gin.Context) {
	id := c.Param("id")
	body, contentType, err := h.blobs.Open(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		log.Errorf("Error opening image %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve image"})
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}
