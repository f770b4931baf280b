// Package checkpoint persists the crawl cursor: the last fully processed
// page number. The cursor is what makes an interrupted crawl resumable.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/storage"
)

// Checkpoint marks crawl progress. LastPageDone 0 means no crawl is in
// progress, or a completed one has been fully reset.
type Checkpoint struct {
	LastPageDone int `json:"last_page_done"`
}

// Store reads and writes the checkpoint through a blob store.
type Store struct {
	blobs  storage.BlobStore
	key    string
	logger *zap.Logger
}

// DefaultKey is where the checkpoint blob lives unless overridden.
const DefaultKey = "crawl/checkpoint.json"

// NewStore builds a Store over blobs. An empty key uses DefaultKey.
func NewStore(blobs storage.BlobStore, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, key: key, logger: logger}
}

// Load returns the persisted checkpoint. A missing or corrupt blob is
// treated as "start from scratch" and never fails upward.
func (s *Store) Load(ctx context.Context) Checkpoint {
	raw, err := s.blobs.ReadText(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("checkpoint read failed, starting fresh", zap.Error(err))
		}
		return Checkpoint{}
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		s.logger.Warn("checkpoint blob corrupt, starting fresh", zap.Error(err))
		return Checkpoint{}
	}
	if cp.LastPageDone < 0 {
		return Checkpoint{}
	}
	return cp
}

// Save persists page as the last fully processed page. The write completes
// before the caller moves on; that ordering is the resumability guarantee.
func (s *Store) Save(ctx context.Context, page int) error {
	payload, err := json.Marshal(Checkpoint{LastPageDone: page})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := s.blobs.WriteText(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("save checkpoint page %d: %w", page, err)
	}
	return nil
}

// Reset clears the checkpoint after a crawl reaches its page limit.
func (s *Store) Reset(ctx context.Context) error {
	return s.Save(ctx, 0)
}
