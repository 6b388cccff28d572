package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyWithParamsStable(t *testing.T) {
	key := GenerateKeyWithParams("tradelens:analytics", "metrics", "fifo", 7, "2024-01-02", "2024-02-01")

	assert.Equal(t, "tradelens:analytics:metrics:fifo:7:2024-01-02:2024-02-01", key)
	assert.Equal(t, key, GenerateKeyWithParams("tradelens:analytics", "metrics", "fifo", 7, "2024-01-02", "2024-02-01"))
}

func TestGenerateKeyWithoutParams(t *testing.T) {
	assert.Equal(t, "tradelens:analytics", GenerateKeyWithParams("tradelens:analytics"))
}

func TestBuildPattern(t *testing.T) {
	assert.Equal(t, "tradelens:analytics*", BuildPattern("tradelens:analytics"))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Pnl    float64 `json:"pnl"`
	}

	require.NoError(t, mc.Set(ctx, "k", payload{Symbol: "AAPL", Pnl: 12.5}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.InDelta(t, 12.5, got.Pnl, 1e-9)

	var s string
	require.NoError(t, mc.Set(ctx, "raw", "hello", time.Minute))
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "hello", s)
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var out string
	err := mc.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var out string
	assert.ErrorIs(t, mc.Get(ctx, "short", &out), ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, mc.Delete(ctx, "a"))

	var out string
	assert.ErrorIs(t, mc.Get(ctx, "a", &out), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "b", &out))

	require.NoError(t, mc.DeleteByPattern(ctx, "tradelens:*"))
	assert.ErrorIs(t, mc.Get(ctx, "b", &out), ErrCacheMiss)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "oldest", "1", time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mc.Set(ctx, "middle", "2", time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mc.Set(ctx, "newest", "3", time.Minute))

	var out string
	assert.ErrorIs(t, mc.Get(ctx, "oldest", &out), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "middle", &out))
	assert.NoError(t, mc.Get(ctx, "newest", &out))
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheExpiredLockReacquirable(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
