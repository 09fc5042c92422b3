package storage

import (
	"context"
	"sync"
)

// MemoryImage is an image held by MemoryImageStore
type MemoryImage struct {
	Data        []byte
	ContentType string
}

// MemoryImageStore keeps images in memory. It is used when object storage is
// disabled in development, and in tests.
type MemoryImageStore struct {
	// BaseURL prefixes the keys in URL
	BaseURL string

	mu      sync.RWMutex
	objects map[string]MemoryImage
}

// NewMemoryImageStore creates a new MemoryImageStore
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{
		BaseURL: "memory://images",
		objects: make(map[string]MemoryImage),
	}
}

// Upload stores a copy of data
func (s *MemoryImageStore) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = MemoryImage{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// URL returns BaseURL + "/" + key
func (s *MemoryImageStore) URL(_ context.Context, storageKey string) (string, error) {
	if storageKey == "" {
		return "", ErrEmptyKey
	}
	return s.BaseURL + "/" + storageKey, nil
}

// Delete removes an image
func (s *MemoryImageStore) Delete(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// Exists checks if an image exists
func (s *MemoryImageStore) Exists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// Get returns a stored image
func (s *MemoryImageStore) Get(storageKey string) (MemoryImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.objects[storageKey]
	return img, ok
}
