package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/services"
)

const (
	// HeaderPageSession identifies the page session (one per browser tab).
	HeaderPageSession = "X-SPA"
	// HeaderRequestToken identifies a submit so that a retry supersedes it.
	HeaderRequestToken = "X-Request-Token"
	// CookiePageSession carries the page session when the header is absent.
	CookiePageSession = "spa_session"

	// ContextKeyPageSession holds the *services.SessionStore in the Gin context.
	ContextKeyPageSession = "pageSession"
)

var pageSessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ISessionRegistry hands out the store of a page session.
type ISessionRegistry interface {
	Acquire(ctx context.Context, id string) (*services.SessionStore, error)
}

// PageSessionID returns the page session id sent by the client, or a new one.
func PageSessionID(c *gin.Context) string {
	if id := c.GetHeader(HeaderPageSession); pageSessionIDPattern.MatchString(id) {
		return id
	}
	if id, err := c.Cookie(CookiePageSession); err == nil && pageSessionIDPattern.MatchString(id) {
		return id
	}
	return uuid.NewString()
}

// PageSessionMiddleware provides the page session store to every handler, both
// in the request context (services.SessionFrom) and in the Gin context.
func PageSessionMiddleware(registry ISessionRegistry, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := PageSessionID(c)
		store, err := registry.Acquire(c.Request.Context(), id)
		if err != nil {
			log.WithField("page_session", id).Errorf("Failed to start page session: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
			return
		}

		c.Header(HeaderPageSession, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookiePageSession, id, 0, "/", "", secureCookie, true)

		c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), store))
		c.Set(ContextKeyPageSession, store)
		c.Next()
	}
}
