package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/model"
)

func TestParseClusterNodes(t *testing.T) {
	raw := "07c3 10.0.0.1:6379@16379 myself,master - 0 0 1 connected 0-5460\n" +
		"a1b2 10.0.0.2:6379@16379 slave 07c3 0 0 1 connected\n" +
		"\n"

	base := model.ServerConfig{ID: "srv-1"}
	nodes := parseClusterNodes(raw, base)

	require.Len(t, nodes, 2)
	require.Equal(t, model.RoleMaster, nodes[0].Role)
	require.Equal(t, "10.0.0.1", nodes[0].Config.Host)
	require.Equal(t, model.RoleReplica, nodes[1].Role)
}

func TestParseSentinelMastersFiltersByPreferredName(t *testing.T) {
	records := []interface{}{
		[]interface{}{"name", "mymaster", "ip", "10.0.0.1", "port", "6379"},
		[]interface{}{"name", "othermaster", "ip", "10.0.0.2", "port", "6379"},
	}
	nodes, err := parseSentinelMasters(records, model.ServerConfig{MasterName: "mymaster"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "10.0.0.1", nodes[0].Config.Host)
}

func TestParseSentinelMastersFailsOnAmbiguity(t *testing.T) {
	records := []interface{}{
		[]interface{}{"name", "mymaster", "ip", "10.0.0.1", "port", "6379"},
		[]interface{}{"name", "othermaster", "ip", "10.0.0.2", "port", "6379"},
	}
	_, err := parseSentinelMasters(records, model.ServerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mymaster")
	assert.Contains(t, err.Error(), "othermaster")
}
