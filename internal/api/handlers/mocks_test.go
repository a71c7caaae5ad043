package handlers_test

import (
	"context"
	"io"
	"reflect"

	"github.com/stretchr/testify/mock"

	"adboard/market/internal/models"
	"adboard/market/internal/storage"
)

// --- Mocks ---

// MockIdentityProvider implements services.IIdentityProvider. Subscribe always
// delivers Initial.
type MockIdentityProvider struct {
	mock.Mock
	Initial *models.Identity
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, pageID string, creds models.Credentials) (*models.Identity, error) {
	args := m.Called(ctx, pageID, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

func (m *MockIdentityProvider) Subscribe(ctx context.Context, pageID string, fn func(*models.Identity)) (func(), error) {
	fn(m.Initial)
	return func() {}, nil
}

// MockDocumentStore implements db.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) FetchAll(ctx context.Context, collection string, out interface{}) error {
	args := m.Called(ctx, collection, out)
	if items := args.Get(0); items != nil {
		reflect.ValueOf(out).Elem().Set(reflect.ValueOf(items))
	}
	return args.Error(1)
}

func (m *MockDocumentStore) CreateDocument(ctx context.Context, collection string, doc interface{}) (string, error) {
	args := m.Called(ctx, collection, doc)
	return args.String(0), args.Error(1)
}

// MockBlobStore implements storage.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.BlobHandle, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Get(0).(storage.BlobHandle), args.Error(1)
}

func (m *MockBlobStore) ResolveURL(ctx context.Context, handle storage.BlobHandle) (string, error) {
	args := m.Called(ctx, handle)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockBlobReader implements storage.BlobReader.
type MockBlobReader struct {
	mock.Mock
}

func (m *MockBlobReader) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

// MockNotifier implements notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockInbox implements handlers.INotificationInbox.
type MockInbox struct {
	mock.Mock
}

func (m *MockInbox) Drain(ctx context.Context, sessionID string) ([]models.Notification, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}
