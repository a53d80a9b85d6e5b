package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores snapshots as JSON strings under prefix+id.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a backend on client. A zero TTL stores keys
// without expiry.
func NewRedisBackend(client redis.Cmdable, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

var _ Backend = (*RedisBackend)(nil)

func (b *RedisBackend) key(id uuid.UUID) string {
	return b.prefix + id.String()
}

// Get implements Backend.Get
func (b *RedisBackend) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return &task, nil
}

// Set implements Backend.Set
func (b *RedisBackend) Set(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := b.client.Set(ctx, b.key(task.ID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Delete implements Backend.Delete
func (b *RedisBackend) Delete(ctx context.Context, id uuid.UUID) error {
	if err := b.client.Del(ctx, b.key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}
