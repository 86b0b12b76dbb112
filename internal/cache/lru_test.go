package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, ok := c.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, c.Len())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 3, stats.Capacity)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// Touch a so b becomes least recently used.
	c.Get("a")
	c.Add("d", 4)

	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("c"))
	assert.True(t, c.Contains("d"))
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)
	c.Add("c", 3)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
	assert.False(t, c.Contains("b"))
	assert.Equal(t, 2, c.Len())
}

func TestLRU_NeverExceedsCapacity(t *testing.T) {
	c := NewLRU[int, string](16)
	for i := 0; i < 1000; i++ {
		c.Add(i, fmt.Sprint(i))
		assert.LessOrEqual(t, c.Len(), 16)
	}
	for i := 984; i < 1000; i++ {
		assert.True(t, c.Contains(i))
	}
}

func TestLRU_DefaultCapacityAndPurge(t *testing.T) {
	c := NewLRU[string, int](0)
	assert.Equal(t, DefaultCapacity, c.Capacity())

	c.Add("a", 1)
	c.Purge()
	assert.Zero(t, c.Len())
	assert.False(t, c.Contains("a"))

	c.Add("b", 2)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (g*500 + i) % 128
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
