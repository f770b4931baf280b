package api

import (
	"sync/atomic"

	"github.com/futdex/futdex/internal/roster"
)

// Holder owns the currently published snapshot as an explicitly replaceable
// value. The crawl core only ever returns fresh snapshots; publication is
// the one place a snapshot becomes shared, and it is replaced wholesale.
type Holder struct {
	current atomic.Pointer[roster.Snapshot]
}

// Publish replaces the current snapshot.
func (h *Holder) Publish(snap roster.Snapshot) {
	h.current.Store(&snap)
}

// Get returns the published snapshot, or ok false before the first publish.
func (h *Holder) Get() (roster.Snapshot, bool) {
	p := h.current.Load()
	if p == nil {
		return roster.Snapshot{}, false
	}
	return *p, true
}
