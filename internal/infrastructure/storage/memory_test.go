package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImageStore(t *testing.T) {
	s := NewMemoryImageStore()
	ctx := context.Background()

	data := []byte{1, 2, 3}
	require.NoError(t, s.Upload(ctx, "products/1.jpg", data, "image/jpeg"))
	data[0] = 9

	img, ok := s.Get("products/1.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
	assert.Equal(t, "image/jpeg", img.ContentType)

	url, err := s.URL(ctx, "products/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "memory://images/products/1.jpg", url)

	exists, err := s.Exists(ctx, "products/1.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "products/1.jpg"))
	exists, err = s.Exists(ctx, "products/1.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.Upload(ctx, "", nil, ""), ErrEmptyKey)
}
