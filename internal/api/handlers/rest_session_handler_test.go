package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"adboard/market/internal/api/handlers"
	"adboard/market/internal/auth"
	"adboard/market/internal/models"
)

func setupSessionRouter(t *testing.T, provider *MockIdentityProvider, inbox *MockInbox) *gin.Engine {
	t.Helper()
	handler := handlers.NewRestSessionHandler(inbox)
	r := newEngine(newSession(t, provider))
	r.GET("/v1/session", handler.GetSession)
	r.POST("/v1/session/login", handler.Login)
	r.POST("/v1/session/logout", handler.Logout)
	r.POST("/v1/session/login-modal/open", handler.OpenLoginModal)
	r.POST("/v1/session/login-modal/close", handler.CloseLoginModal)
	r.GET("/v1/session/notifications", handler.Notifications)
	return r
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) models.SessionState {
	t.Helper()
	var state models.SessionState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func TestRestSessionHandler_GetSession(t *testing.T) {
	r := setupSessionRouter(t, &MockIdentityProvider{Initial: sellerIdentity}, new(MockInbox))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/session", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	require.NotNil(t, state.Identity)
	assert.Equal(t, "seller@example.com", state.Identity.Email)
	assert.False(t, state.LoginModalVisible)
}

func TestRestSessionHandler_LoginModal(t *testing.T) {
	r := setupSessionRouter(t, &MockIdentityProvider{}, new(MockInbox))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/session/login-modal/open", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).LoginModalVisible)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/session/login-modal/close", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeState(t, w).LoginModalVisible)
}

func TestRestSessionHandler_Login(t *testing.T) {
	creds := models.Credentials{Email: "seller@example.com", Password: "password123"}

	tests := []struct {
		name           string
		body           string
		setupMock      func(p *MockIdentityProvider)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Success",
			body: `{"email":"seller@example.com","password":"password123"}`,
			setupMock: func(p *MockIdentityProvider) {
				p.On("SignIn", mock.Anything, "page-1", creds).Return(sellerIdentity, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"email":"seller@example.com"`,
		},
		{
			name:           "Missing password",
			body:           `{"email":"seller@example.com"}`,
			setupMock:      func(p *MockIdentityProvider) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Email and password are required",
		},
		{
			name: "Invalid credentials",
			body: `{"email":"seller@example.com","password":"password123"}`,
			setupMock: func(p *MockIdentityProvider) {
				p.On("SignIn", mock.Anything, "page-1", creds).Return(nil, auth.ErrInvalidCredentials).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Sign-in failed",
		},
		{
			name: "Cancelled",
			body: `{"email":"seller@example.com","password":"password123"}`,
			setupMock: func(p *MockIdentityProvider) {
				p.On("SignIn", mock.Anything, "page-1", creds).Return(nil, auth.ErrSignInCancelled).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "Sign-in cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MockIdentityProvider{}
			tt.setupMock(provider)
			r := setupSessionRouter(t, provider, new(MockInbox))

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/v1/session/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			provider.AssertExpectations(t)
		})
	}
}

func TestRestSessionHandler_Logout(t *testing.T) {
	provider := &MockIdentityProvider{Initial: sellerIdentity}
	provider.On("SignOut", mock.Anything, "page-1").Return(nil).Once()
	r := setupSessionRouter(t, provider, new(MockInbox))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/session/logout", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeState(t, w).Identity)
	provider.AssertExpectations(t)
}

func TestRestSessionHandler_LogoutFailureKeepsIdentity(t *testing.T) {
	provider := &MockIdentityProvider{Initial: sellerIdentity}
	provider.On("SignOut", mock.Anything, "page-1").Return(errors.New("redis down")).Once()
	r := setupSessionRouter(t, provider, new(MockInbox))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/session/logout", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/session", nil)
	r.ServeHTTP(w, req)
	assert.NotNil(t, decodeState(t, w).Identity)
}

func TestRestSessionHandler_Notifications(t *testing.T) {
	inbox := new(MockInbox)
	pending := []models.Notification{
		{SessionID: "page-1", Kind: models.NotificationSuccess, Message: "Ad created!", CreatedAt: time.Unix(1700000000, 0).UTC()},
	}
	inbox.On("Drain", mock.Anything, "page-1").Return(pending, nil).Once()
	r := setupSessionRouter(t, &MockIdentityProvider{}, inbox)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/session/notifications", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Ad created!"`)
	assert.Contains(t, w.Body.String(), `"kind":"success"`)
	inbox.AssertExpectations(t)
}

func TestRestSessionHandler_NotificationsUnavailable(t *testing.T) {
	inbox := new(MockInbox)
	inbox.On("Drain", mock.Anything, "page-1").Return(nil, errors.New("redis down")).Once()
	r := setupSessionRouter(t, &MockIdentityProvider{}, inbox)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/session/notifications", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRestSessionHandler_WithoutPageSession(t *testing.T) {
	handler := handlers.NewRestSessionHandler(new(MockInbox))
	r := gin.New()
	r.GET("/v1/session", handler.GetSession)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/session", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
