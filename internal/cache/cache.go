// Package cache provides the read-through task cache that sits in front of
// the task store. Entries are full task snapshots keyed by ID; the store
// remains the source of truth and every mutation evicts or overwrites the
// entry explicitly.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by a Backend when no entry exists for the key.
var ErrMiss = errors.New("cache miss")

// Backend stores task snapshots. Implementations must be safe for
// concurrent use and must never hand out shared mutable state.
type Backend interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Set(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoaderFunc reads a task from the source of truth.
type LoaderFunc func(ctx context.Context, id uuid.UUID) (*domain.Task, error)

// TaskCache is the read-through cache used by the task services.
type TaskCache interface {
	// Get returns the cached task or loads it, populating the cache.
	// Errors from the loader, including not-found, are returned unchanged.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Put overwrites the entry for task.ID.
	Put(ctx context.Context, task *domain.Task) error

	// Evict removes the entry for id. Evicting a missing entry is not an error.
	Evict(ctx context.Context, id uuid.UUID) error

	// Stats returns a snapshot of the cache counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Puts      uint64  `json:"puts"`
	Evictions uint64  `json:"evictions"`
	Errors    uint64  `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
}

type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	puts      atomic.Uint64
	evictions atomic.Uint64
	errors    atomic.Uint64
}

// fill tracks one in-flight load. stale is set when a Put or Evict for the
// same key lands while the load runs; the loaded snapshot may then predate
// that write and must not be stored.
type fill struct {
	stale bool
}

type readThroughCache struct {
	backend Backend
	load    LoaderFunc
	group   singleflight.Group
	stats   counters
	logger  *slog.Logger

	mu    sync.Mutex // guards fills and orders populate writes against Put/Evict
	fills map[uuid.UUID]*fill
}

// NewTaskCache composes backend with loader. Concurrent misses on the same
// key share a single loader call.
func NewTaskCache(backend Backend, load LoaderFunc, logger *slog.Logger) (TaskCache, error) {
	if backend == nil {
		return nil, domain.NewValidationError("backend", "cannot be nil", domain.ErrValidation)
	}
	if load == nil {
		return nil, domain.NewValidationError("load", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &readThroughCache{
		backend: backend,
		load:    load,
		logger:  logger.With(slog.String("component", "task_cache")),
		fills:   make(map[uuid.UUID]*fill),
	}, nil
}

func (c *readThroughCache) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	task, err := c.backend.Get(ctx, id)
	switch {
	case err == nil:
		c.stats.hits.Add(1)
		return task, nil
	case errors.Is(err, ErrMiss):
		c.stats.misses.Add(1)
	default:
		// A broken backend degrades to a store read.
		c.stats.errors.Add(1)
		c.stats.misses.Add(1)
		log.Warn("cache backend read failed, falling back to store",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
	}

	v, err, _ := c.group.Do(id.String(), func() (interface{}, error) {
		f := c.beginFill(id)
		defer c.endFill(id)
		loaded, err := c.load(ctx, id)
		if err != nil {
			return nil, err
		}
		c.populate(ctx, log, id, f, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Task).Clone(), nil
}

func (c *readThroughCache) beginFill(id uuid.UUID) *fill {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &fill{}
	c.fills[id] = f
	return f
}

func (c *readThroughCache) endFill(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fills, id)
}

// populate stores a freshly loaded snapshot unless a write for the same key
// happened during the load. The lock is held across the backend write so a
// concurrent Put or Evict is ordered strictly before or after it.
func (c *readThroughCache) populate(
	ctx context.Context,
	log *slog.Logger,
	id uuid.UUID,
	f *fill,
	loaded *domain.Task,
) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fills, id)

	if f.stale {
		log.Debug("skipping cache fill superseded by a write", slog.String("task_id", id.String()))
		return
	}
	if err := c.backend.Set(ctx, loaded); err != nil {
		c.stats.errors.Add(1)
		log.Warn("failed to populate cache after load",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return
	}
	c.stats.puts.Add(1)
}

// invalidateFill marks any in-flight load of id as stale.
func (c *readThroughCache) invalidateFill(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fills[id]; ok {
		f.stale = true
	}
}

func (c *readThroughCache) Put(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == uuid.Nil {
		return domain.NewValidationError("task", "cannot cache a task without an ID", domain.ErrValidation)
	}
	c.invalidateFill(task.ID)
	if err := c.backend.Set(ctx, task); err != nil {
		c.stats.errors.Add(1)
		logger.FromContextOrDefault(ctx, c.logger).Error("failed to put task in cache",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return err
	}
	c.stats.puts.Add(1)
	return nil
}

func (c *readThroughCache) Evict(ctx context.Context, id uuid.UUID) error {
	c.invalidateFill(id)
	if err := c.backend.Delete(ctx, id); err != nil {
		c.stats.errors.Add(1)
		logger.FromContextOrDefault(ctx, c.logger).Error("failed to evict task from cache",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return err
	}
	c.stats.evictions.Add(1)
	return nil
}

func (c *readThroughCache) Stats() Stats {
	hits := c.stats.hits.Load()
	misses := c.stats.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Hits:      hits,
		Misses:    misses,
		Puts:      c.stats.puts.Load(),
		Evictions: c.stats.evictions.Load(),
		Errors:    c.stats.errors.Load(),
		HitRate:   rate,
	}
}
