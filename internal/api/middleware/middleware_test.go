package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"adboard/market/internal/api/middleware"
	"adboard/market/internal/models"
	"adboard/market/internal/services"
)

// --- Mocks ---

// fakeProvider reports a fixed identity for every page session.
type fakeProvider struct {
	identity *models.Identity
}

func (p *fakeProvider) SignIn(ctx context.Context, pageID string, creds models.Credentials) (*models.Identity, error) {
	return p.identity, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, pageID string) error { return nil }

func (p *fakeProvider) Subscribe(ctx context.Context, pageID string, fn func(*models.Identity)) (func(), error) {
	fn(p.identity)
	return func() {}, nil
}

type MockSessionRegistry struct {
	mock.Mock
}

func (m *MockSessionRegistry) Acquire(ctx context.Context, id string) (*services.SessionStore, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionStore), args.Error(1)
}

func startedStore(t *testing.T, id string, identity *models.Identity) *services.SessionStore {
	store := services.NewSessionStore(id, &fakeProvider{identity: identity})
	require.NoError(t, store.Start(context.Background()))
	return store
}

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Rate limiter ---

func TestRateLimiterMiddleware_RejectsBeyondBurst(t *testing.T) {
	rl := middleware.NewRateLimiterMiddleware(1, 2)
	r := gin.New()
	r.Use(rl.Limit())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "1.2.3.4:12345"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "5.6.7.8:12345"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	assert.Equal(t, 2, rl.Cleanup(0))
}

// --- CORS ---

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware("https://adboard.example"))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/test", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://adboard.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-SPA")

	r = gin.New()
	r.Use(middleware.CORSMiddleware("*"))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

// --- Page session ---

func TestPageSessionMiddleware_UsesHeader(t *testing.T) {
	id := "3f6c2a1e-page-session"
	store := startedStore(t, id, nil)
	registry := new(MockSessionRegistry)
	registry.On("Acquire", mock.Anything, id).Return(store, nil)

	r := gin.New()
	r.Use(middleware.PageSessionMiddleware(registry, false))
	var got *services.SessionStore
	r.GET("/test", func(c *gin.Context) {
		var err error
		got, err = services.SessionFrom(c.Request.Context())
		require.NoError(t, err)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.HeaderPageSession, id)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, store, got)
	assert.Equal(t, id, w.Header().Get(middleware.HeaderPageSession))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.CookiePageSession+"="+id)
}

func TestPageSessionMiddleware_GeneratesID(t *testing.T) {
	registry := new(MockSessionRegistry)
	registry.On("Acquire", mock.Anything, mock.AnythingOfType("string")).
		Return(startedStore(t, "generated", nil), nil)

	r := gin.New()
	r.Use(middleware.PageSessionMiddleware(registry, false))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.HeaderPageSession, "bad id!")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(middleware.HeaderPageSession), 36)
}

func TestPageSessionMiddleware_RegistryError(t *testing.T) {
	registry := new(MockSessionRegistry)
	registry.On("Acquire", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	r := gin.New()
	r.Use(middleware.PageSessionMiddleware(registry, false))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- Sign-in gate ---

func gatedEngine(store *services.SessionStore) *gin.Engine {
	r := gin.New()
	if store != nil {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), store))
			c.Next()
		})
	}
	r.Use(middleware.RequireIdentity())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.ContextKeyUserID)) })
	return r
}

func TestRequireIdentity(t *testing.T) {
	tests := []struct {
		name     string
		store    *services.SessionStore
		wantCode int
		wantBody string
	}{
		{"signed in", startedStore(t, "page-signed-in", &models.Identity{UserID: "u1"}), http.StatusOK, "u1"},
		{"signed out", startedStore(t, "page-signed-out", nil), http.StatusUnauthorized, "Sign in required"},
		{"no provider", nil, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			gatedEngine(tt.store).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
