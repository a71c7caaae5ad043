package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/api/middleware"
	"adboard/market/internal/models"
	"adboard/market/internal/services"
)

// IListingWriter opens sell views.
type IListingWriter interface {
	Open(session *services.SessionStore, nav services.Navigator) (*services.SellView, bool)
}

// RestSellHandler serves the sell view and listing creation.
type RestSellHandler struct {
	writer        IListingWriter
	maxImageBytes int64
}

// NewRestSellHandler creates a new RestSellHandler. Images above maxImageBytes
// are rejected; zero means no limit.
func NewRestSellHandler(writer IListingWriter, maxImageBytes int64) *RestSellHandler {
	return &RestSellHandler{writer: writer, maxImageBytes: maxImageBytes}
}

// OpenSellView handles GET /v1/sell. Signed-out sessions are redirected to the catalog.
func (h *RestSellHandler) OpenSellView(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	nav := &redirectNavigator{}
	view, ok := h.writer.Open(session, nav)
	if !ok {
		c.Redirect(http.StatusSeeOther, nav.path)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"form":       view.Form(),
		"categories": models.Categories,
	})
}

// CreateListing handles POST /v1/ads (multipart form with an image file).
func (h *RestSellHandler) CreateListing(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	nav := &redirectNavigator{}
	view, ok := h.writer.Open(session, nav)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in required", "redirect": nav.path})
		return
	}

	form, fieldErrs := h.formFromRequest(c)
	view.SetForm(form)
	for field, msg := range form.Validate() {
		if _, exists := fieldErrs[field]; !exists {
			fieldErrs[field] = msg
		}
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrs, "form": form})
		return
	}

	token := c.GetHeader(middleware.HeaderRequestToken)
	if token == "" {
		token = uuid.NewString()
	}
	ctx, done, err := session.InFlight().Begin(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session closed"})
		return
	}
	defer done()

	listing, err := view.Submit(ctx)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSignInRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in required", "redirect": services.CatalogPath})
		case errors.Is(err, services.ErrInvalidPrice):
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"price": "Price must be a non-negative number"}, "form": view.Form()})
		case errors.Is(err, context.Canceled):
			c.JSON(http.StatusConflict, gin.H{"error": "Submission superseded", "form": view.Form()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": services.MessageListingFailed, "form": view.Form()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"listing":  listing,
		"redirect": nav.path,
		"notification": gin.H{
			"kind":    models.NotificationSuccess,
			"message": services.MessageListingCreated,
		},
	})
}

func (h *RestSellHandler) formFromRequest(c *gin.Context) (services.ListingForm, map[string]string) {
	errs := make(map[string]string)
	form := services.ListingForm{
		Title:       c.PostForm("title"),
		Category:    c.PostForm("category"),
		Price:       c.PostForm("price"),
		Description: c.PostForm("description"),
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			log.Warnf("Failed to read image from sell form: %v", err)
			errs["image"] = "Image could not be read"
		}
		return form, errs
	}
	if h.maxImageBytes > 0 && fileHeader.Size > h.maxImageBytes {
		errs["image"] = fmt.Sprintf("Image must be at most %d MB", h.maxImageBytes/(1024*1024))
		return form, errs
	}
	form.Image = imageFromHeader(fileHeader)
	return form, errs
}

func imageFromHeader(fh *multipart.FileHeader) *services.ImageFile {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.ImageFile{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
