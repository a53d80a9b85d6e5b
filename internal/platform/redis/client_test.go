package redis

import (
	"context"
	"os"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{})
	assert.ErrorContains(t, err, "redis address is required")
}

func TestNewClient_UnreachableServer(t *testing.T) {
	// Port 1 is reserved and never serves Redis.
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "failed to ping redis")
}

func TestNewClient_Connects(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set - skipping redis connectivity test")
	}

	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
