package returners

import (
	"context"
	"sync"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// Memory keeps recorded entries in process, in record order. Intended
// for tests and embedding.
type Memory struct {
	mu      sync.Mutex
	entries []fdg.ReturnEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (r *Memory) Record(_ context.Context, entry fdg.ReturnEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *Memory) Entries() []fdg.ReturnEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fdg.ReturnEntry{}, r.entries...)
}
