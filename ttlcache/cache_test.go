package ttlcache_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/ttlcache"
)

func TestGetRefreshesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := ttlcache.New[string, int](10*time.Second, clock)

	c.Insert("k", 1)

	clock.Advance(9 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 1, v)

	// Refreshed expiry means another 9s (18s total from insert) should
	// still be within the idle window.
	clock.Advance(9 * time.Second)
	_, ok = c.Get("k")
	require.True(t, ok)
}

func TestSweepEvictsExpiredOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := ttlcache.New[string, int](5*time.Second, clock)

	c.Insert("stale", 1)
	clock.Advance(6 * time.Second)
	c.Insert("fresh", 2)

	evicted, remaining := c.Sweep()
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, remaining)

	_, ok := c.Get("stale")
	require.False(t, ok)
	_, ok = c.Get("fresh")
	require.True(t, ok)
}

func TestRemoveMatching(t *testing.T) {
	c := ttlcache.New[string, int](time.Minute, nil)
	c.Insert("server-a|0", 1)
	c.Insert("server-a|1", 2)
	c.Insert("server-b|0", 3)

	evicted := c.RemoveMatching(func(k string) bool {
		return strings.HasPrefix(k, "server-a|")
	})
	require.Equal(t, 2, evicted)
	require.Equal(t, 1, c.Len())
}
