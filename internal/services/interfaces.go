package services

import (
	"context"

	"adboard/market/internal/models"
)

// IIdentityProvider is the backing identity provider of page sessions.
type IIdentityProvider interface {
	SignIn(ctx context.Context, pageID string, creds models.Credentials) (*models.Identity, error)
	SignOut(ctx context.Context, pageID string) error
	// Subscribe calls fn at least once immediately and again after every change
	// of the page session. The returned func releases the subscription.
	Subscribe(ctx context.Context, pageID string, fn func(identity *models.Identity)) (func(), error)
}

// Navigator moves the presentation layer to another view.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// IOrphanBlobScheduler schedules removal of a blob whose listing was never saved.
type IOrphanBlobScheduler interface {
	ScheduleBlobCleanup(ctx context.Context, key string) error
}
