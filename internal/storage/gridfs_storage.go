package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ImageRoutePrefix is where the API serves GridFS blobs.
const ImageRoutePrefix = "/v1/images/"

// GridFSStorage implements BlobStore and BlobReader on a MongoDB GridFS bucket.
type GridFSStorage struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewGridFSStorage opens the named GridFS bucket. publicBaseURL is the externally
// reachable address of this API and is used to build image URLs.
func NewGridFSStorage(database *mongo.Database, bucketName, publicBaseURL string) (*GridFSStorage, error) {
	bucket, err := gridfs.NewBucket(database, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS bucket %s: %w", bucketName, err)
	}
	return &GridFSStorage{bucket: bucket, baseURL: publicBaseURL}, nil
}

// Upload streams body into a new GridFS file named key.
func (g *GridFSStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (BlobHandle, error) {
	if err := ctx.Err(); err != nil {
		return BlobHandle{}, err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType, "size": size})
	fileID, err := g.bucket.UploadFromStream(key, body, opts)
	if err != nil {
		return BlobHandle{}, fmt.Errorf("failed to upload %s to GridFS: %w", key, err)
	}
	return BlobHandle{Key: key, ID: fileID.Hex()}, nil
}

// ResolveURL points at the image route of this API.
func (g *GridFSStorage) ResolveURL(ctx context.Context, handle BlobHandle) (string, error) {
	if handle.ID == "" {
		return "", fmt.Errorf("cannot resolve URL for GridFS blob %q without file ID", handle.Key)
	}
	return g.baseURL + ImageRoutePrefix + handle.ID, nil
}

// Delete removes every GridFS file stored under key.
func (g *GridFSStorage) Delete(ctx context.Context, key string) error {
	cursor, err := g.bucket.Find(bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("failed to look up GridFS files for %s: %w", key, err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return fmt.Errorf("failed to decode GridFS files for %s: %w", key, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("gridfs file %s: %w", key, ErrBlobNotFound)
	}
	for _, f := range files {
		if err := g.bucket.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("failed to delete GridFS file %s: %w", f.ID.Hex(), err)
		}
	}
	return nil
}

// Open returns a reader for the file with the given hex ID and its content type.
func (g *GridFSStorage) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image id %q: %w", id, ErrBlobNotFound)
	}
	stream, err := g.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", fmt.Errorf("gridfs file %s: %w", id, ErrBlobNotFound)
		}
		return nil, "", fmt.Errorf("failed to open GridFS file %s: %w", id, err)
	}

	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
