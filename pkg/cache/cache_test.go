package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/pkg/cache"
)

func TestCache_GetSet(t *testing.T) {
	c := cache.New[string](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	c.Set("k", "v2")
	got, ok = c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := cache.New[int](10, 2*time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 42)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	// Just before expiry the entry is still visible
	now = now.Add(2*time.Minute - time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok)

	// At expiry it is treated as absent and evicted lazily
	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := cache.New[int](10, 0)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(1000 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCache_BoundEvictsLRU(t *testing.T) {
	c := cache.New[int](3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the least recently used
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently touched entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive eviction", key)
	}
}

func TestCache_SetRefreshesRecency(t *testing.T) {
	c := cache.New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // refresh, "b" is now oldest
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New[int](64, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("key_%d", j%32)
				c.Set(key, worker*1000+j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
