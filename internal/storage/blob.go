package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// KeyPrefix namespaces every listing image in the blob store.
const KeyPrefix = "ads/"

// ErrBlobNotFound is returned when a blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobHandle identifies an uploaded blob. ID is backend specific and may be empty.
type BlobHandle struct {
	Key string
	ID  string
}

// BlobStore is the binary storage capability used for listing images.
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (BlobHandle, error)
	ResolveURL(ctx context.Context, handle BlobHandle) (string, error)
	Delete(ctx context.Context, key string) error
}

// BlobReader is implemented by backends that serve their blobs through this API.
type BlobReader interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds the storage key for an uploaded image from the upload time and
// the original filename. Keys differ whenever the timestamps differ, so two files
// named the same never collide.
func ObjectKey(uploadedAt time.Time, filename string) string {
	return fmt.Sprintf("%s%d_%s", KeyPrefix, uploadedAt.UnixNano(), SanitizeFilename(filename))
}

// SanitizeFilename strips directories and characters that are unsafe in URLs.
func SanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	return name
}
