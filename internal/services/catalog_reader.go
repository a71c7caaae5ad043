package services

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"adboard/market/internal/db"
	"adboard/market/internal/models"
)

// CatalogState is one observation of a catalog read. Exactly one of loading,
// success (Err nil) or failure (Err set) holds, and Items is empty unless the
// read succeeded.
type CatalogState struct {
	Items   []models.Listing
	Loading bool
	Err     error
}

// ErrorMessage renders the failure for the catalog view, or "" when there is none.
func (s CatalogState) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return "Error loading ads: " + s.Err.Error()
}

// CatalogReader reads the listing collection once per activation.
type CatalogReader struct {
	store      db.DocumentStore
	collection string

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state CatalogState
}

// NewCatalogReader creates a reader in the loading state.
func NewCatalogReader(store db.DocumentStore, collection string) *CatalogReader {
	return &CatalogReader{
		store:      store,
		collection: collection,
		done:       make(chan struct{}),
		state:      CatalogState{Items: []models.Listing{}, Loading: true},
	}
}

// Activate starts the fetch. Only the first call has an effect.
func (r *CatalogReader) Activate(ctx context.Context) {
	r.once.Do(func() {
		go r.fetch(ctx)
	})
}

func (r *CatalogReader) fetch(ctx context.Context) {
	defer close(r.done)

	var items []models.Listing
	err := r.store.FetchAll(ctx, r.collection, &items)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		log.Errorf("Error loading ads from %s: %v", r.collection, err)
		r.state = CatalogState{Items: []models.Listing{}, Err: err}
		return
	}
	if items == nil {
		items = []models.Listing{}
	}
	r.state = CatalogState{Items: items}
}

// State returns the current observation.
func (r *CatalogReader) State() CatalogState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Wait blocks until the fetch settles or ctx is done and returns the state at
// that point.
func (r *CatalogReader) Wait(ctx context.Context) CatalogState {
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	return r.State()
}
