package services

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"adboard/market/internal/models"
)

// SessionStore holds the authentication state of one page session.
type SessionStore struct {
	id       string
	provider IIdentityProvider
	inflight *InFlight

	mu                sync.RWMutex
	identity          *models.Identity
	loginModalVisible bool
	unsubscribe       func()

	closeOnce sync.Once
}

// NewSessionStore creates a signed-out store for a page session.
func NewSessionStore(id string, provider IIdentityProvider) *SessionStore {
	return &SessionStore{id: id, provider: provider, inflight: NewInFlight()}
}

// ID returns the page session id.
func (s *SessionStore) ID() string {
	return s.id
}

// InFlight returns the registry of cancellable operations of this page session.
func (s *SessionStore) InFlight() *InFlight {
	return s.inflight
}

// Start subscribes to session changes of the identity provider. The provider
// fires once immediately, which recovers a persisted session.
func (s *SessionStore) Start(ctx context.Context) error {
	unsubscribe, err := s.provider.Subscribe(ctx, s.id, s.setIdentity)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session changes: %w", err)
	}
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) setIdentity(identity *models.Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// State returns a snapshot of the session.
func (s *SessionStore) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionState{Identity: s.identity, LoginModalVisible: s.loginModalVisible}
}

// Identity returns the signed-in identity or nil.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Login runs the interactive sign-in. On failure the identity is left as it was.
func (s *SessionStore) Login(ctx context.Context, creds models.Credentials) error {
	identity, err := s.provider.SignIn(ctx, s.id, creds)
	if err != nil {
		log.WithField("page_session", s.id).Errorf("Error signing in: %v", err)
		return err
	}
	s.mu.Lock()
	s.identity = identity
	s.loginModalVisible = false
	s.mu.Unlock()
	return nil
}

// Logout clears the provider session and the identity.
func (s *SessionStore) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx, s.id); err != nil {
		log.WithField("page_session", s.id).Errorf("Error signing out: %v", err)
		return err
	}
	s.setIdentity(nil)
	return nil
}

func (s *SessionStore) OpenLoginModal() {
	s.mu.Lock()
	s.loginModalVisible = true
	s.mu.Unlock()
}

func (s *SessionStore) CloseLoginModal() {
	s.mu.Lock()
	s.loginModalVisible = false
	s.mu.Unlock()
}

// Close releases the provider subscription and cancels in-flight operations.
// Only the first call has an effect.
func (s *SessionStore) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		s.inflight.CancelAll()
	})
}
