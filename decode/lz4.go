package decode

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// tryLengthPrefixedLZ4 implements spec §4.11 step 7: the first 4 bytes are
// a little-endian uncompressed length, followed by an LZ4 block (not a
// framed stream). Returns ok=false on any failure rather than an error,
// since this is a speculative probe in the pipeline, not a terminal stage.
func tryLengthPrefixedLZ4(data []byte) (decoded []byte, ok bool) {
	if len(data) < 4 {
		return nil, false
	}
	size := binary.LittleEndian.Uint32(data[:4])
	if size == 0 || size > 64*1024*1024 {
		return nil, false
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], dst)
	if err != nil {
		return nil, false
	}
	return dst[:n], true
}
