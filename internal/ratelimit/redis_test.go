package ratelimit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/nikah/internal/config"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("NIKAH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NIKAH_TEST_REDIS_ADDR not set")
	}
	cfg := &config.RateLimitConfig{
		RedisAddr: addr,
		KeyPrefix: "nikah:test:" + uuid.NewString() + ":",
		Window:    time.Hour,
	}
	s, err := NewRedisStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_Quota(t *testing.T) {
	s := newTestRedisStore(t)
	c := newClock()
	l := New(s, Policy{MaxSearches: 3, Window: time.Hour}, WithClock(c.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, l.CheckAndConsume(ctx, "client").Allowed)
	}
	assert.False(t, l.CheckAndConsume(ctx, "client").Allowed)

	w, found, err := s.GetQuota(ctx, "client")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, w.Count)
	assert.True(t, w.Start.Equal(c.Now()))
}

func TestRedisStore_ConcurrentCallsNeverExceedQuota(t *testing.T) {
	s := newTestRedisStore(t)
	l := New(s, DefaultPolicy)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckAndConsume(context.Background(), "client").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, allowed.Load(), int32(5))
}
