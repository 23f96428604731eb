package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestLooksLikeMessagePack(t *testing.T) {
	packed, err := msgpack.Marshal(map[string]interface{}{
		"name": "redis",
		"port": 6379,
	})
	require.NoError(t, err)
	assert.True(t, looksLikeMessagePack(packed))

	v, err := decodeMessagePack(packed)
	require.NoError(t, err)
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "redis", m["name"])
}

func TestLooksLikeMessagePackRejectsTrailingGarbage(t *testing.T) {
	packed, err := msgpack.Marshal(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	packed = append(packed, 0x01, 0x02, 0x03)
	assert.False(t, looksLikeMessagePack(packed), "trailing bytes after a complete value must be rejected")
}

func TestLooksLikeMessagePackRejectsNonContainer(t *testing.T) {
	packed, err := msgpack.Marshal("just a string")
	require.NoError(t, err)
	assert.False(t, looksLikeMessagePack(packed))
}

func TestLooksLikeMessagePackRejectsPlainText(t *testing.T) {
	assert.False(t, looksLikeMessagePack([]byte("hello world")))
}
