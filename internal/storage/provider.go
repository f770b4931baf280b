// Package storage defines the blob store interface backing checkpoint and
// snapshot persistence. The abstraction keeps the crawl core independent of
// where blobs actually live (local filesystem, memory, or something remote).
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ReadText when no blob exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// BlobStore is a minimal text key-value store with load/save semantics.
type BlobStore interface {
	// ReadText returns the stored text for key, or ErrNotFound.
	ReadText(ctx context.Context, key string) (string, error)
	// WriteText persists value under key, replacing any previous content.
	// The write is durable before the call returns.
	WriteText(ctx context.Context, key string, value string) error
}
