package decode

import (
	"encoding/binary"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLengthPrefixedLZ4(t *testing.T, plain []byte) []byte {
	t.Helper()
	compressed := make([]byte, len(plain)+16)
	n, err := lz4.CompressBlock(plain, compressed, nil)
	require.NoError(t, err)
	require.NotZero(t, n, "data too small to compress, adjust fixture")

	out := make([]byte, 4+n)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(plain)))
	copy(out[4:], compressed[:n])
	return out
}

func TestTryLengthPrefixedLZ4RoundTrips(t *testing.T) {
	plain := []byte(`{"repeatable":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`)
	framed := buildLengthPrefixedLZ4(t, plain)

	decoded, ok := tryLengthPrefixedLZ4(framed)
	require.True(t, ok)
	assert.Equal(t, plain, decoded)
}

func TestTryLengthPrefixedLZ4RejectsShortInput(t *testing.T) {
	_, ok := tryLengthPrefixedLZ4([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestTryLengthPrefixedLZ4RejectsGarbage(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 100)
	data = append(data, []byte("not actually lz4 compressed data")...)
	_, ok := tryLengthPrefixedLZ4(data)
	assert.False(t, ok)
}

func TestTryLengthPrefixedLZ4RejectsOversizedLength(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 1<<31)
	_, ok := tryLengthPrefixedLZ4(data)
	assert.False(t, ok)
}
