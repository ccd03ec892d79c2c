package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheSetGet(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheOverwrite(t *testing.T) {
	c := NewLRUCache[string, string](4, time.Minute)

	c.Set("k", "first", 0)
	c.Set("k", "second", 0)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int, int](3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(i, i, 0)
	}

	// Touching 0 makes 1 the least recently used entry.
	_, ok := c.Get(0)
	require.True(t, ok)

	c.Set(3, 3, 0)

	_, ok = c.Get(1)
	assert.False(t, ok)
	_, ok = c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 3, c.Size())
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.Set("short", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheCleanupExpired(t *testing.T) {
	c := NewLRUCache[string, int](8, time.Minute)

	c.Set("keep", 1, time.Minute)
	c.Set("drop-1", 2, time.Millisecond)
	c.Set("drop-2", 3, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 2, c.CleanupExpired())
	assert.Equal(t, 1, c.Size())

	_, ok := c.Get("keep")
	assert.True(t, ok)
}

func TestLRUCacheRemoveAndClear(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)

	c.Set("a", 1, 0)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))

	c.Set("b", 2, 0)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheDefaults(t *testing.T) {
	c := NewLRUCache[string, int](0, 0)
	assert.Equal(t, 1024, c.Capacity())
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int, int](128, time.Minute)

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				c.Set(i%64, w*1000+i, 0)
				c.Get(i % 64)
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	assert.LessOrEqual(t, c.Size(), 64)
}

func TestLRUCacheCapacityBound(t *testing.T) {
	c := NewLRUCache[string, int](16, time.Minute)

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, 0)
	}
	assert.Equal(t, 16, c.Size())
}
