package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AWS_S3_BUCKET", "adboard-images")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "ads", cfg.ListingsCollection)
	assert.Equal(t, BlobBackendS3, cfg.BlobBackend)
	assert.Equal(t, time.Duration(0), cfg.BackendTimeout)
	assert.False(t, cfg.OrphanBlobCleanup)
	assert.Equal(t, int64(10*1024*1024), cfg.ImageMaxSizeBytes())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load("api")
	assert.ErrorContains(t, err, "MONGO_URI")
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequired(t)

	t.Setenv("BLOB_BACKEND", "ftp")
	_, err := Load("all")
	assert.ErrorContains(t, err, "BLOB_BACKEND")

	t.Setenv("BLOB_BACKEND", "gridfs")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "-3")
	_, err = Load("all")
	assert.ErrorContains(t, err, "BACKEND_TIMEOUT_SECONDS")

	t.Setenv("BACKEND_TIMEOUT_SECONDS", "5")
	t.Setenv("ORPHAN_BLOB_CLEANUP", "true")
	cfg, err := Load("all")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.True(t, cfg.OrphanBlobCleanup)
}
