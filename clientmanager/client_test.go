package clientmanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/connfactory"
	"github.com/bigtree-zedis/zedis-core/model"
	"github.com/bigtree-zedis/zedis-core/sshtunnel"
)

func TestGenerationStartsAtZeroAndBumpsOnRemove(t *testing.T) {
	factory := connfactory.New()
	defer factory.Close()
	ssh := sshtunnel.NewManager()
	defer ssh.Close()

	m := New(factory, ssh)
	require.Equal(t, uint64(0), m.Generation("srv-1"))

	cfg := model.ServerConfig{ID: "srv-1", Host: "127.0.0.1", Port: 6379}
	m.RemoveClient("srv-1", cfg)
	require.Equal(t, uint64(1), m.Generation("srv-1"))
}

func TestRemoveClientEvictsOnlyMatchingHash(t *testing.T) {
	factory := connfactory.New()
	defer factory.Close()
	ssh := sshtunnel.NewManager()
	defer ssh.Close()

	m := New(factory, ssh)

	cfgA := model.ServerConfig{ID: "srv-a", Host: "127.0.0.1", Port: 6379}
	cfgB := model.ServerConfig{ID: "srv-b", Host: "127.0.0.1", Port: 6380}

	m.cache.Insert(cacheKey(cfgA, 0), &Client{ServerID: "srv-a"})
	m.cache.Insert(cacheKey(cfgA, 1), &Client{ServerID: "srv-a"})
	m.cache.Insert(cacheKey(cfgB, 0), &Client{ServerID: "srv-b"})

	evicted := m.RemoveClient("srv-a", cfgA)
	require.Equal(t, 2, evicted)

	_, ok := m.cache.Get(cacheKey(cfgB, 0))
	require.True(t, ok)
}
