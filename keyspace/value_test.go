package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/model"
)

func TestKeyTypeFromReply(t *testing.T) {
	cases := map[string]model.KeyType{
		"string": model.KeyString,
		"list":   model.KeyList,
		"set":    model.KeySet,
		"zset":   model.KeyZSet,
		"hash":   model.KeyHash,
		"stream": model.KeyStream,
		"none":   model.KeyUnknown,
	}
	for reply, want := range cases {
		assert.Equal(t, want, keyTypeFromReply(reply))
	}
}

func TestBytesFromReply(t *testing.T) {
	assert.Equal(t, []byte("hi"), bytesFromReply("hi"))
	assert.Equal(t, []byte("hi"), bytesFromReply([]byte("hi")))
	assert.Nil(t, bytesFromReply(int64(5)))
}

func TestStringsFromReply(t *testing.T) {
	reply := []interface{}{"a", []byte("b"), int64(3)}
	assert.Equal(t, []string{"a", "b"}, stringsFromReply(reply))
}

func TestParseScanPairReply(t *testing.T) {
	reply := []interface{}{"12", []interface{}{"field1", "value1"}}
	cursor, fields, err := parseScanPairReply(reply)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), cursor)
	assert.Equal(t, []string{"field1", "value1"}, fields)
}

func TestParseScanPairReplyRejectsMalformed(t *testing.T) {
	_, _, err := parseScanPairReply([]interface{}{"only-one-field"})
	assert.Error(t, err)
}
