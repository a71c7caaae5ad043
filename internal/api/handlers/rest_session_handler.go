package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"adboard/market/internal/auth"
	"adboard/market/internal/models"
)

// INotificationInbox hands out the pending toasts of a page session.
type INotificationInbox interface {
	Drain(ctx context.Context, sessionID string) ([]models.Notification, error)
}

// RestSessionHandler exposes the page session store.
type RestSessionHandler struct {
	inbox INotificationInbox
}

// NewRestSessionHandler creates a new RestSessionHandler.
func NewRestSessionHandler(inbox INotificationInbox) *RestSessionHandler {
	return &RestSessionHandler{inbox: inbox}
}

// GetSession handles GET /v1/session.
func (h *RestSessionHandler) GetSession(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Login handles POST /v1/session/login.
func (h *RestSessionHandler) Login(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	if err := session.Login(c.Request.Context(), creds); err != nil {
		if errors.Is(err, auth.ErrSignInCancelled) {
			c.JSON(http.StatusConflict, gin.H{"error": "Sign-in cancelled"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in failed"})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Logout handles POST /v1/session/logout.
func (h *RestSessionHandler) Logout(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if err := session.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sign-out failed"})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// OpenLoginModal handles POST /v1/session/login-modal/open.
func (h *RestSessionHandler) OpenLoginModal(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	session.OpenLoginModal()
	c.JSON(http.StatusOK, session.State())
}

// CloseLoginModal handles POST /v1/session/login-modal/close.
func (h *RestSessionHandler) CloseLoginModal(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	session.CloseLoginModal()
	c.JSON(http.StatusOK, session.State())
}

// Notifications handles GET /v1/session/notifications and drains the inbox.
func (h *RestSessionHandler) Notifications(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	notifications, err := h.inbox.Drain(c.Request.Context(), session.ID())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Notifications unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
