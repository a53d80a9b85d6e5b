// Package redis opens the shared Redis client used by the cache and the
// rate limiter.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// pingTimeout bounds the connectivity check performed by NewClient.
const pingTimeout = 5 * time.Second

// NewClient creates a client for cfg and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}
