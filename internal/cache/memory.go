package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

type memoryEntry struct {
	task      *domain.Task
	expiresAt time.Time
}

// MemoryBackend keeps snapshots in a process-local map. A zero TTL keeps
// entries until they are evicted.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ Backend = (*MemoryBackend)(nil)

// Get implements Backend.Get
func (b *MemoryBackend) Get(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	b.mu.RLock()
	entry, ok := b.entries[id]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && !b.now().Before(entry.expiresAt) {
		b.mu.Lock()
		if current, ok := b.entries[id]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(b.entries, id)
		}
		b.mu.Unlock()
		return nil, ErrMiss
	}
	return entry.task.Clone(), nil
}

// Set implements Backend.Set
func (b *MemoryBackend) Set(_ context.Context, task *domain.Task) error {
	entry := memoryEntry{task: task.Clone()}
	if b.ttl > 0 {
		entry.expiresAt = b.now().Add(b.ttl)
	}

	b.mu.Lock()
	b.entries[task.ID] = entry
	b.mu.Unlock()
	return nil
}

// Delete implements Backend.Delete
func (b *MemoryBackend) Delete(_ context.Context, id uuid.UUID) error {
	b.mu.Lock()
	delete(b.entries, id)
	b.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
