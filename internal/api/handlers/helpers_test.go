package handlers_test

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"adboard/market/internal/models"
	"adboard/market/internal/services"
)

var sellerIdentity = &models.Identity{UserID: "u1", Email: "seller@example.com", DisplayName: "Seller"}

func init() {
	gin.SetMode(gin.TestMode)
}

func newSession(t *testing.T, provider *MockIdentityProvider) *services.SessionStore {
	t.Helper()
	store := services.NewSessionStore("page-1", provider)
	require.NoError(t, store.Start(context.Background()))
	return store
}

// newEngine wraps every request in the given page session, as the page
// session middleware does.
func newEngine(store *services.SessionStore) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), store))
		c.Next()
	})
	return r
}
