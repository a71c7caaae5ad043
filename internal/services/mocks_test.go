package services

import (
	"context"
	"io"
	"reflect"
	"sync"

	"github.com/stretchr/testify/mock"

	"adboard/market/internal/models"
	"adboard/market/internal/storage"
)

// MockIdentityProvider implements IIdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
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

func (m *MockIdentityProvider) Subscribe(ctx context.Context, pageID string, fn func(identity *models.Identity)) (func(), error) {
	args := m.Called(ctx, pageID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// expectSubscribe makes Subscribe deliver initial to the callback and returns a
// counter of unsubscribe calls.
func (m *MockIdentityProvider) expectSubscribe(pageID string, initial *models.Identity) *int {
	calls := new(int)
	var mu sync.Mutex
	m.On("Subscribe", mock.Anything, pageID, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(2).(func(*models.Identity))(initial)
		}).
		Return(func() {
			mu.Lock()
			*calls++
			mu.Unlock()
		}, nil)
	return calls
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

// MockNotifier implements notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockOrphanBlobScheduler implements IOrphanBlobScheduler.
type MockOrphanBlobScheduler struct {
	mock.Mock
}

func (m *MockOrphanBlobScheduler) ScheduleBlobCleanup(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// recordingNavigator records every navigation.
type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths = append(n.paths, path)
}
