package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/config"
)

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements BlobStore on an S3 bucket.
type S3Storage struct {
	client  S3API
	bucket  string
	region  string
	baseURL string
	timeout time.Duration
}

// NewS3Client builds an S3 client from static credentials in the config.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Storage creates an S3-backed blob store.
func NewS3Storage(cfg *config.Config, client S3API) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  cfg.AwsS3Bucket,
		region:  cfg.AwsRegion,
		baseURL: cfg.ImageBaseS3URL,
		timeout: cfg.BackendTimeout,
	}
}

func (s *S3Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Upload puts the object under key. Objects must be publicly readable for the
// resolved URL to be fetchable; that is a bucket policy concern.
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (BlobHandle, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return BlobHandle{}, fmt.Errorf("failed to upload object %s to S3: %w", key, err)
	}

	log.WithFields(log.Fields{"bucket": s.bucket, "key": key, "size": size}).Debug("Uploaded object to S3")
	return BlobHandle{Key: key}, nil
}

// ResolveURL returns the public URL of an object. IMAGE_BASE_S3_URL (a CDN or
// custom domain) wins over the virtual-hosted bucket URL.
func (s *S3Storage) ResolveURL(ctx context.Context, handle BlobHandle) (string, error) {
	if handle.Key == "" {
		return "", fmt.Errorf("cannot resolve URL for empty S3 key")
	}
	escaped := escapeKey(handle.Key)
	if s.baseURL != "" {
		return s.baseURL + "/" + escaped, nil
	}
	if s.region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, escaped), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), nil
}

// Delete removes the object under key.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("s3 object %s: %w", key, ErrBlobNotFound)
		}
		return fmt.Errorf("failed to delete object %s from S3: %w", key, err)
	}
	return nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
