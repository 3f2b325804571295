// Package persist implements the durable storage sinks the memory gate hands
// validated entries to.
//
// The gate is the only caller; this package never transitions entry state and
// stores whatever the gate passes exactly as given.
package persist

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
)

// MemorySink stores validated entries in memory. Used in tests and dry-run
// mode where no durable storage is wanted.
type MemorySink struct {
	mu      sync.Mutex
	entries []*memorygate.MemoryEntry
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Persist records the entry.
func (s *MemorySink) Persist(ctx context.Context, entry *memorygate.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns all persisted entries in arrival order.
func (s *MemorySink) Entries() []*memorygate.MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*memorygate.MemoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
