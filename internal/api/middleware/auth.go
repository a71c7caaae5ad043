package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/services"
)

// ContextKeyUserID holds the key for user ID in Gin context.
const ContextKeyUserID = "userID"

// RequireIdentity rejects requests whose page session is signed out.
// Assumes PageSessionMiddleware runs first.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := services.SessionFrom(c.Request.Context())
		if err != nil {
			log.Errorf("RequireIdentity: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		identity := session.Identity()
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
			return
		}

		c.Set(ContextKeyUserID, identity.UserID)
		c.Next()
	}
}
