package connfactory_test

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/connfactory"
	"github.com/bigtree-zedis/zedis-core/model"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis) model.ServerConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return model.ServerConfig{ID: "srv-1", Host: host, Port: port}
}

func TestGetBuildsAndReusesConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	f := connfactory.New()
	defer f.Close()

	cfg := testConfig(t, mr)
	ctx := context.Background()

	c1, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)
	require.NoError(t, c1.Ping(ctx).Err())

	c2, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)
	require.Same(t, c1, c2)
}

func TestGetReturnsCachedClientWithinPingThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	f := connfactory.New()
	defer f.Close()

	cfg := testConfig(t, mr)
	ctx := context.Background()

	_, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)

	mr.Close()
	newMr := miniredis.NewMiniRedis()
	require.NoError(t, newMr.StartAddr(mr.Addr()))
	defer newMr.Close()

	// lastPing is fresh so Get still returns the stale client within the
	// throttle window; this exercises the cache-hit path, not recovery.
	c, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestSweepEvictsDeadConnections(t *testing.T) {
	mr := miniredis.RunT(t)
	f := connfactory.New()
	defer f.Close()

	cfg := testConfig(t, mr)
	ctx := context.Background()

	_, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)

	mr.Close()
	require.Equal(t, 1, f.Sweep(ctx))
	require.Equal(t, 0, f.Sweep(ctx))
}

func TestSweepKeepsLiveConnections(t *testing.T) {
	mr := miniredis.RunT(t)
	f := connfactory.New()
	defer f.Close()

	cfg := testConfig(t, mr)
	ctx := context.Background()

	_, err := f.Get(ctx, cfg, 0)
	require.NoError(t, err)

	require.Equal(t, 0, f.Sweep(ctx))
}
