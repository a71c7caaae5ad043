package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type registryEntry struct {
	store    *SessionStore
	lastSeen time.Time
}

// SessionRegistry owns the session store of every live page session.
type SessionRegistry struct {
	provider IIdentityProvider
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewSessionRegistry creates a SessionRegistry. Page sessions unused for idleTTL
// are torn down by Reap.
func NewSessionRegistry(provider IIdentityProvider, idleTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		provider: provider,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*registryEntry),
	}
}

// Acquire returns the store of a page session, creating and starting it on first use.
func (r *SessionRegistry) Acquire(ctx context.Context, id string) (*SessionStore, error) {
	r.mu.Lock()
	if entry, ok := r.sessions[id]; ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.store, nil
	}
	r.mu.Unlock()

	store := NewSessionStore(id, r.provider)
	if err := store.Start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[id]; ok {
		// Lost a race with a concurrent first request of the same page session.
		store.Close()
		entry.lastSeen = r.now()
		return entry.store, nil
	}
	r.sessions[id] = &registryEntry{store: store, lastSeen: r.now()}
	log.WithField("page_session", id).Debug("Started page session")
	return store, nil
}

// Remove tears down a page session.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		entry.store.Close()
	}
}

// Len returns the number of live page sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap tears down page sessions idle for longer than the idle TTL and returns
// how many were removed.
func (r *SessionRegistry) Reap() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*SessionStore
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry.store)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, store := range stale {
		store.Close()
	}
	if len(stale) > 0 {
		log.Printf("Session reaper removed %d idle page sessions.", len(stale))
	}
	return len(stale)
}

// Run reaps idle page sessions every interval until ctx is done, then tears
// down the remaining ones.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Reap()
		}
	}
}

// CloseAll tears down every page session.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, entry := range sessions {
		entry.store.Close()
	}
}
