package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freezeTime(t *testing.T) *time.Time {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })
	return &base
}

func TestSimpleCache_SetGet_NoTTL(t *testing.T) {
	c := NewSimpleCache[string, int]()
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, c.Len())

	ttl, ok := c.TTL("a")
	require.True(t, ok)
	require.Zero(t, ttl)
}

func TestSimpleCache_TTL_Expiry(t *testing.T) {
	clock := freezeTime(t)
	c := NewSimpleCache[string, string]()

	c.Set("k", "v", time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)

	*clock = clock.Add(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Equal(t, 1, c.PurgeExpired())
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_Update_KeepsExpiry(t *testing.T) {
	clock := freezeTime(t)
	c := NewSimpleCache[string, int]()
	incr := func(n int, _ bool) int { return n + 1 }

	require.Equal(t, 1, c.Update("login:a", time.Minute, incr))
	*clock = clock.Add(30 * time.Second)
	require.Equal(t, 2, c.Update("login:a", time.Minute, incr))

	left, ok := c.TTL("login:a")
	require.True(t, ok)
	require.Equal(t, 30*time.Second, left)

	// window elapsed: the counter restarts
	*clock = clock.Add(31 * time.Second)
	require.Equal(t, 1, c.Update("login:a", time.Minute, incr))
}

func TestSimpleCache_Delete_Clear(t *testing.T) {
	c := NewSimpleCache[int, int]()
	c.Set(1, 10, 0)
	c.Set(2, 20, 0)
	c.Delete(1)
	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_ConcurrentUpdate(t *testing.T) {
	c := NewSimpleCache[string, int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 20; r++ {
				c.Update("n", 0, func(n int, _ bool) int { return n + 1 })
			}
		}()
	}
	wg.Wait()

	v, ok := c.Get("n")
	require.True(t, ok)
	require.Equal(t, 1000, v)
}
