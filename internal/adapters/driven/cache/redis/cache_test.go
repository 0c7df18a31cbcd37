package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// testRedisEnv names a Redis used by the integration test.
const testRedisEnv = "HTP_TEST_REDIS_URL"

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "http://not-redis")
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), "redis://127.0.0.1:1/0")
	assert.Error(t, err)
}

func TestCache_Integration(t *testing.T) {
	url := os.Getenv(testRedisEnv)
	if url == "" {
		t.Skipf("%s not set", testRedisEnv)
	}

	ctx := context.Background()
	cache, err := New(ctx, url)
	require.NoError(t, err)
	defer cache.Close()

	key := "htp:test:" + uuid.NewString()

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "굴뚝 해석", time.Minute))
	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "굴뚝 해석", got)
}
