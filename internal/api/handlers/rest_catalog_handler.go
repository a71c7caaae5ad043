package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adboard/market/internal/db"
	"adboard/market/internal/models"
	"adboard/market/internal/services"
)

// RestCatalogHandler serves the catalog view.
type RestCatalogHandler struct {
	documents  db.DocumentStore
	collection string
}

// NewRestCatalogHandler creates a new RestCatalogHandler.
func NewRestCatalogHandler(documents db.DocumentStore, collection string) *RestCatalogHandler {
	return &RestCatalogHandler{documents: documents, collection: collection}
}

type catalogResponse struct {
	Items   []models.Listing `json:"items"`
	Loading bool             `json:"loading"`
	Error   *string          `json:"error"`
}

// ListListings handles GET /v1/ads. Every request activates a new catalog reader.
func (h *RestCatalogHandler) ListListings(c *gin.Context) {
	ctx := c.Request.Context()
	reader := services.NewCatalogReader(h.documents, h.collection)
	reader.Activate(ctx)
	state := reader.Wait(ctx)

	resp := catalogResponse{Items: state.Items, Loading: state.Loading}
	switch {
	case state.Err != nil:
		msg := state.ErrorMessage()
		resp.Error = &msg
		c.JSON(http.StatusBadGateway, resp)
	case state.Loading:
		c.JSON(http.StatusGatewayTimeout, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}
