// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/futdex/futdex/internal/storage"
)

// BlobStore keeps blobs in a map guarded by a RWMutex.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string]string)}
}

// ReadText returns the stored text for key, or storage.ErrNotFound.
func (s *BlobStore) ReadText(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

// WriteText stores value under key.
func (s *BlobStore) WriteText(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
