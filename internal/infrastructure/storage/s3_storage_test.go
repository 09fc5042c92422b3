package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/erp/prestashop-connector/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "test-bucket",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3ImageStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ImageStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3ImageStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3ImageStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3ImageStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PresignExpiration = 5 * time.Minute
		store, err := NewS3ImageStore(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", store.Bucket())
		assert.Equal(t, 5*time.Minute, store.presignExpiration)
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		for _, ssl := range []bool{false, true} {
			cfg := testStorageConfig()
			cfg.Endpoint = "localhost:9000"
			cfg.UseSSL = ssl
			store, err := NewS3ImageStore(cfg)
			require.NoError(t, err)
			require.NotNil(t, store)
		}
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		store, err := NewS3ImageStore(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})
}

func TestS3ImageStoreOptions(t *testing.T) {
	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		store, err := NewS3ImageStore(testStorageConfig(), WithLogger(logger))
		require.NoError(t, err)
		assert.Same(t, logger, store.logger)
	})

	t.Run("WithPresignExpiration sets custom duration", func(t *testing.T) {
		store, err := NewS3ImageStore(testStorageConfig(), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, store.presignExpiration)
	})
}

func TestS3ImageStore_URL(t *testing.T) {
	ctx := context.Background()

	t.Run("empty storage key returns error", func(t *testing.T) {
		store, err := NewS3ImageStore(testStorageConfig())
		require.NoError(t, err)
		url, err := store.URL(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.Empty(t, url)
	})

	t.Run("presigned when no public URL", func(t *testing.T) {
		store, err := NewS3ImageStore(testStorageConfig())
		require.NoError(t, err)
		url, err := store.URL(ctx, "products/1/12.jpg")
		require.NoError(t, err)
		assert.True(t, strings.Contains(url, "localhost:9000"))
		assert.True(t, strings.Contains(url, "test-bucket"))
		assert.Contains(t, url, "X-Amz-Signature")
	})

	t.Run("public URL", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PublicURL = "https://cdn.example.com/images/"
		store, err := NewS3ImageStore(cfg)
		require.NoError(t, err)
		url, err := store.URL(ctx, "products/1/12.jpg")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/images/products/1/12.jpg", url)
	})
}

func TestS3ImageStore_EmptyKey(t *testing.T) {
	store, err := NewS3ImageStore(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upload(ctx, "", []byte("x"), "image/jpeg"), ErrEmptyKey)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrEmptyKey)
	exists, err := store.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.False(t, exists)
}

// ============================================================================
// Integration Tests (require RustFS/MinIO running)
// ============================================================================

func newIntegrationStore(t *testing.T) *S3ImageStore {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 and run RustFS to enable.")
	}

	cfg := &config.StorageConfig{
		Bucket:       "test-integration",
		AccessKey:    "rustfsadmin",
		SecretKey:    "rustfsadmin123",
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		UsePathStyle: true,
	}
	store, err := NewS3ImageStore(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(context.Background()))
	// Second call finds the bucket
	require.NoError(t, store.EnsureBucket(context.Background()))
	return store
}

func TestIntegration_UploadAndDelete(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	key := "integration-test/image.jpg"

	require.NoError(t, store.Upload(ctx, key, []byte{0xff, 0xd8, 0xff}, "image/jpeg"))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	url, err := store.URL(ctx, key)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	require.NoError(t, store.Delete(ctx, key))
	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
