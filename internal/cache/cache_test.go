package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask() *domain.Task {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:          uuid.New(),
		Title:       "Write report",
		Description: "Quarterly numbers",
		DueDate:     now.Add(24 * time.Hour),
		Status:      domain.TaskStatusPending,
		Tags:        []string{"work"},
		CreatedBy:   uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type countingLoader struct {
	calls atomic.Int32
	tasks map[uuid.UUID]*domain.Task
	delay time.Duration
}

func (l *countingLoader) load(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	task, ok := l.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// brokenBackend fails every operation.
type brokenBackend struct{}

func (brokenBackend) Get(context.Context, uuid.UUID) (*domain.Task, error) {
	return nil, errors.New("connection refused")
}
func (brokenBackend) Set(context.Context, *domain.Task) error { return errors.New("connection refused") }
func (brokenBackend) Delete(context.Context, uuid.UUID) error { return errors.New("connection refused") }

func TestNewTaskCache_RequiresDependencies(t *testing.T) {
	loader := &countingLoader{}

	_, err := NewTaskCache(nil, loader.load, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTaskCache(NewMemoryBackend(0), nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskCache_ReadThrough(t *testing.T) {
	task := newTestTask()
	loader := &countingLoader{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
	require.NoError(t, err)

	first, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)

	assert.Equal(t, task, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load(), "second read must be served from cache")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Puts)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}

func TestTaskCache_NotFoundPropagates(t *testing.T) {
	loader := &countingLoader{tasks: map[uuid.UUID]*domain.Task{}}
	c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Equal(t, uint64(0), c.Stats().Puts)
}

func TestTaskCache_SnapshotsAreIsolated(t *testing.T) {
	task := newTestTask()
	loader := &countingLoader{tasks: map[uuid.UUID]*domain.Task{}}
	c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
	require.NoError(t, err)

	require.NoError(t, c.Put(context.Background(), task))
	task.Title = "mutated after put"

	got, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)

	got.Tags[0] = "mutated after get"
	again, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, again.Tags)
}

func TestTaskCache_EvictThenRepopulate(t *testing.T) {
	task := newTestTask()
	loader := &countingLoader{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), task.ID)
	require.NoError(t, err)

	updated := task.Clone()
	updated.Title = "Updated"
	require.NoError(t, c.Evict(context.Background(), task.ID))
	require.NoError(t, c.Put(context.Background(), updated))

	got, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Title)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
	assert.NoError(t, c.Evict(context.Background(), uuid.New()), "evicting a missing key is not an error")
}

// gatedLoader blocks every load until release is closed.
type gatedLoader struct {
	started chan struct{}
	release chan struct{}
	task    *domain.Task
	calls   atomic.Int32
}

func newGatedLoader(task *domain.Task) *gatedLoader {
	return &gatedLoader{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		task:    task,
	}
}

func (l *gatedLoader) load(_ context.Context, _ uuid.UUID) (*domain.Task, error) {
	l.calls.Add(1)
	select {
	case l.started <- struct{}{}:
	default:
	}
	<-l.release
	return l.task.Clone(), nil
}

func TestTaskCache_WriteDuringLoadWins(t *testing.T) {
	ctx := context.Background()

	t.Run("put during load", func(t *testing.T) {
		old := newTestTask()
		old.Title = "old"
		loader := newGatedLoader(old)
		c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
		require.NoError(t, err)

		done := make(chan *domain.Task)
		go func() {
			got, err := c.Get(ctx, old.ID)
			assert.NoError(t, err)
			done <- got
		}()
		<-loader.started

		updated := old.Clone()
		updated.Title = "new"
		require.NoError(t, c.Evict(ctx, old.ID))
		require.NoError(t, c.Put(ctx, updated))

		close(loader.release)
		<-done

		got, err := c.Get(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Title)
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("evict during load", func(t *testing.T) {
		old := newTestTask()
		loader := newGatedLoader(old)
		backend := NewMemoryBackend(0)
		c, err := NewTaskCache(backend, loader.load, nil)
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := c.Get(ctx, old.ID)
			assert.NoError(t, err)
		}()
		<-loader.started

		require.NoError(t, c.Evict(ctx, old.ID))
		close(loader.release)
		<-done

		assert.Equal(t, 0, backend.Len(), "a load overtaken by an eviction must not repopulate")
	})
}

func TestTaskCache_PutRejectsTaskWithoutID(t *testing.T) {
	c, err := NewTaskCache(NewMemoryBackend(0), (&countingLoader{}).load, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Put(context.Background(), nil), domain.ErrValidation)
	assert.ErrorIs(t, c.Put(context.Background(), &domain.Task{}), domain.ErrValidation)
}

func TestTaskCache_BackendFailureDegradesToLoader(t *testing.T) {
	task := newTestTask()
	loader := &countingLoader{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	c, err := NewTaskCache(brokenBackend{}, loader.load, nil)
	require.NoError(t, err)

	got, err := c.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	assert.Error(t, c.Put(context.Background(), task))
	assert.Error(t, c.Evict(context.Background(), task.ID))
	assert.GreaterOrEqual(t, c.Stats().Errors, uint64(3))
}

func TestTaskCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	task := newTestTask()
	loader := &countingLoader{
		tasks: map[uuid.UUID]*domain.Task{task.ID: task},
		delay: 50 * time.Millisecond,
	}
	c, err := NewTaskCache(NewMemoryBackend(0), loader.load, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(context.Background(), task.ID)
			assert.NoError(t, err)
			assert.Equal(t, task.ID, got.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestMemoryBackend_TTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBackend(time.Minute)
	b.now = func() time.Time { return now }
	task := newTestTask()

	require.NoError(t, b.Set(context.Background(), task))
	_, err := b.Get(context.Background(), task.ID)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = b.Get(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, b.Len())
}
