package quota

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := NewMemStore()
	s.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		n, err := s.Hit(ctx, "posts/abc", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, _ := s.Hit(ctx, "posts/other", time.Hour)
	assert.Equal(t, int64(1), n)

	now = now.Add(time.Hour)
	n, _ = s.Hit(ctx, "posts/abc", time.Hour)
	assert.Equal(t, int64(1), n, "window should have reset")

	now = now.Add(2 * time.Hour)
	s.Sweep()
	assert.Empty(t, s.entries)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	s, err := NewRedisStore(url)
	require.NoError(t, err)

	ctx := context.Background()
	key := "test/" + time.Now().Format(time.RFC3339Nano)
	defer s.Client.Del(ctx, redisQuotaPrefix+key)

	n, err := s.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl := s.Client.TTL(ctx, redisQuotaPrefix+key).Val()
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
