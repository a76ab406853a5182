package exstream_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(10)
	ctx := context.Background()

	entry := &exstream.CacheEntry{
		Data:      []byte(`{"data":[]}`),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "abc123",
	}

	require.NoError(t, cache.Set(ctx, "key1", entry))

	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
	assert.True(t, cache.Has(ctx, "key1"))
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, exstream.ErrKeyNotFound)
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(10)
	ctx := context.Background()

	err := cache.Set(ctx, "key1", &exstream.CacheEntry{
		Data:      []byte("stale"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	})
	require.NoError(t, err)

	_, err = cache.Get(ctx, "key1")
	require.ErrorIs(t, err, exstream.ErrEntryExpired)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(10)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("key%d", i), &exstream.CacheEntry{Data: []byte("x")}))
	}

	require.NoError(t, cache.Delete(ctx, "key0"))
	assert.False(t, cache.Has(ctx, "key0"))
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_MaxSizeEvictsOldest(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(2)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, cache.Set(ctx, "old", &exstream.CacheEntry{Data: []byte("1"), StoredAt: now.Add(-2 * time.Minute)}))
	require.NoError(t, cache.Set(ctx, "mid", &exstream.CacheEntry{Data: []byte("2"), StoredAt: now.Add(-1 * time.Minute)}))
	require.NoError(t, cache.Set(ctx, "new", &exstream.CacheEntry{Data: []byte("3"), StoredAt: now}))

	assert.Equal(t, 2, cache.Len())
	assert.False(t, cache.Has(ctx, "old"))
	assert.True(t, cache.Has(ctx, "mid"))
	assert.True(t, cache.Has(ctx, "new"))
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := exstream.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "live", &exstream.CacheEntry{ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, cache.Set(ctx, "dead", &exstream.CacheEntry{ExpiresAt: time.Now().Add(-time.Hour)}))

	cache.Cleanup()

	assert.Equal(t, 1, cache.Len())
}

func TestCacheManager_SetAndGet(t *testing.T) {
	t.Parallel()

	manager := exstream.NewCacheManager(exstream.NewMemoryCache(10), nil)
	ctx := context.Background()

	key := manager.GetCacheKey("get", "http://localhost/design/api/v1/domains")
	assert.Equal(t, "GET:http://localhost/design/api/v1/domains", key)

	_, err := manager.Get(ctx, key)
	require.Error(t, err)

	require.NoError(t, manager.SetWithETag(ctx, key, []byte("body"), `"v1"`, 0))

	data, err := manager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), data)
	assert.Equal(t, `"v1"`, manager.ETag(ctx, key))

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 0.5, stats.GetHitRate(), 0.0001)

	require.NoError(t, manager.Invalidate(ctx, key))
	_, err = manager.Get(ctx, key)
	require.Error(t, err)
}

func TestCacheManager_NilCacheDisablesCaching(t *testing.T) {
	t.Parallel()

	manager := exstream.NewCacheManager(nil, nil)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", []byte("v"), time.Minute))

	_, err := manager.Get(ctx, "k")
	require.ErrorIs(t, err, exstream.ErrCacheDisabled)
}

func TestCacheStats_GetHitRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, (&exstream.CacheStats{}).GetHitRate())
	assert.InDelta(t, 0.75, (&exstream.CacheStats{Hits: 3, Misses: 1}).GetHitRate(), 0.0001)
}

func TestCachingPolicy_ShouldCache(t *testing.T) {
	t.Parallel()

	policy := exstream.DefaultCachingPolicy()

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		expected bool
	}{
		{"get domains", "GET", "http://h/design/api/v1/domains", 200, true},
		{"get error", "GET", "http://h/design/api/v1/domains", 404, false},
		{"post import", "POST", "http://h/design/api/v1/import/das/d", 200, false},
		{"put state", "PUT", "http://h/design/api/v1/resources/d/id/state", 200, false},
		{"editor excluded", "GET", "http://h/empower/api/v1/docedit/1/open", 200, false},
		{"entitlement excluded", "GET", "http://h/ets/v1/search?query=entitlement", 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, policy.ShouldCache(tt.method, tt.path, tt.status))
		})
	}

	included := &exstream.CachingPolicy{CacheGET: true, IncludePaths: []string{"/api/v1/manifests"}}
	assert.True(t, included.ShouldCache("GET", "http://h/design/api/v1/manifests/d/communication-set/1", 200))
	assert.False(t, included.ShouldCache("GET", "http://h/design/api/v1/domains", 200))
}

func TestCacheFactory(t *testing.T) {
	t.Parallel()

	memory, err := exstream.NewCacheFromConfig(nil)
	require.NoError(t, err)
	assert.IsType(t, &exstream.MemoryCache{}, memory)

	none, err := exstream.NewCacheFromConfig(&exstream.CacheConfig{Type: exstream.CacheTypeNone})
	require.NoError(t, err)
	assert.IsType(t, &exstream.NoOpCache{}, none)
	assert.False(t, none.Has(context.Background(), "k"))

	_, err = exstream.NewCacheFromConfig(&exstream.CacheConfig{Type: exstream.CacheTypeNATS})
	require.ErrorIs(t, err, exstream.ErrNATSConfigRequired)

	_, err = exstream.NewCacheFromConfig(&exstream.CacheConfig{Type: "redis"})
	require.ErrorIs(t, err, exstream.ErrUnsupportedCacheType)

	_, err = exstream.NewNATSKVCache(&exstream.NATSKVConfig{})
	require.ErrorIs(t, err, exstream.ErrNATSURLRequired)
}

