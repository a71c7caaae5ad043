package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DocumentStore is the document capability the listing lifecycle depends on.
type DocumentStore interface {
	// FetchAll decodes every document of collection into out (a pointer to a slice),
	// in the order the store yields them.
	FetchAll(ctx context.Context, collection string, out interface{}) error
	// CreateDocument inserts doc as a new document and returns the store-assigned ID.
	CreateDocument(ctx context.Context, collection string, doc interface{}) (string, error)
}

// MongoStore implements DocumentStore on a MongoDB database.
type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration // Zero means none
}

// NewMongoStore creates a MongoStore. A zero timeout leaves calls unbounded.
func NewMongoStore(database *mongo.Database, timeout time.Duration) *MongoStore {
	return &MongoStore{db: database, timeout: timeout}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// FetchAll reads the whole collection with no filter, sort or limit.
func (s *MongoStore) FetchAll(ctx context.Context, collection string, out interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := Try(func() error {
		cursor, err := s.db.Collection(collection).Find(ctx, bson.M{})
		if err != nil {
			return err
		}
		return cursor.All(ctx, out)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch collection %s: %w", collection, err)
	}
	return nil
}

// CreateDocument inserts doc once; inserts are not retried.
func (s *MongoStore) CreateDocument(ctx context.Context, collection string, doc interface{}) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}

	switch id := result.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}
