package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/services"
)

// sessionOrAbort returns the page session store or answers 500 when the route
// is not behind the page session middleware.
func sessionOrAbort(c *gin.Context) (*services.SessionStore, bool) {
	session, err := services.SessionFrom(c.Request.Context())
	if err != nil {
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return session, true
}

// redirectNavigator records where a view wants to go so the handler can answer
// with a redirect.
type redirectNavigator struct {
	path string
}

func (n *redirectNavigator) Navigate(path string) {
	n.path = path
}
