package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Blob backends supported by the storage layer.
const (
	BlobBackendS3     = "s3"
	BlobBackendGridFS = "gridfs"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode   string // Set via flag, not env
	LogLevel  string
	LogFormat string // "text" or "json"

	// MongoDB
	MongoURI           string
	MongoDbName        string
	ListingsCollection string
	UsersCollection    string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	PublicBaseURL  string // Used to build GridFS image URLs
	AllowedOrigin  string

	// Blob storage
	BlobBackend       string
	GridFSBucket      string
	ImageMaxSizeMB    int
	OrphanBlobCleanup bool

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string

	// Sessions
	SessionIdleTTL  time.Duration
	NotificationTTL time.Duration
	BackendTimeout  time.Duration // Zero means no timeout

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		if seconds < 0 {
			return 0, fmt.Errorf("invalid %s: must not be negative", key)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "adboard")
	cfg.ListingsCollection = getEnv("LISTINGS_COLLECTION", "ads")
	cfg.UsersCollection = getEnv("USERS_COLLECTION", "users")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", "*")
	cfg.BlobBackend = strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendS3))
	cfg.GridFSBucket = getEnv("GRIDFS_BUCKET", "ads")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = strings.TrimRight(getEnv("IMAGE_BASE_S3_URL", ""), "/")

	switch cfg.BlobBackend {
	case BlobBackendS3, BlobBackendGridFS:
	default:
		return nil, fmt.Errorf("invalid BLOB_BACKEND: %q (expected %q or %q)", cfg.BlobBackend, BlobBackendS3, BlobBackendGridFS)
	}
	if cfg.BlobBackend == BlobBackendS3 && cfg.AwsS3Bucket == "" {
		return nil, fmt.Errorf("missing required environment variable: AWS_S3_BUCKET (BLOB_BACKEND=s3)")
	}

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "604800")
	if err != nil {
		return nil, err
	}
	cfg.SessionIdleTTL, err = getSeconds("SESSION_IDLE_TTL_SECONDS", "1800")
	if err != nil {
		return nil, err
	}
	cfg.NotificationTTL, err = getSeconds("NOTIFICATION_TTL_SECONDS", "300")
	if err != nil {
		return nil, err
	}
	cfg.BackendTimeout, err = getSeconds("BACKEND_TIMEOUT_SECONDS", "0")
	if err != nil {
		return nil, err
	}

	cfg.ImageMaxSizeMB, err = strconv.Atoi(getEnv("IMAGE_MAX_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_SIZE_MB: %w", err)
	}

	cfg.OrphanBlobCleanup, err = strconv.ParseBool(getEnv("ORPHAN_BLOB_CLEANUP", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_BLOB_CLEANUP: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

// ImageMaxSizeBytes returns the upload size cap in bytes.
func (c *Config) ImageMaxSizeBytes() int64 {
	return int64(c.ImageMaxSizeMB) * 1024 * 1024
}
