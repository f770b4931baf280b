package memory

import (
	"context"
	"testing"

	"github.com/futdex/futdex/internal/storage"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	if err := store.WriteText(ctx, "k", "value"); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	got, err := store.ReadText(ctx, "k")
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if got != "value" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestBlobStoreMissingKey(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	if _, err := store.ReadText(context.Background(), "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
