package decode

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// looksLikeMessagePack implements spec §4.11 step 5: the first byte must be
// a container tag (map or array), and a streaming parse of one value must
// consume exactly the full input — a loose byte-tag match alone is too
// common a false positive against arbitrary binary blobs.
func looksLikeMessagePack(data []byte) bool {
	if len(data) == 0 || !isContainerTag(data[0]) {
		return false
	}

	reader := bytes.NewReader(data)
	dec := msgpack.NewDecoder(reader)
	if _, err := dec.DecodeInterface(); err != nil {
		return false
	}
	return reader.Len() == 0
}

func isContainerTag(b byte) bool {
	switch {
	case b >= 0x80 && b <= 0x8F: // FixMap
		return true
	case b >= 0x90 && b <= 0x9F: // FixArray
		return true
	case b == 0xDC || b == 0xDD: // Array16 / Array32
		return true
	case b == 0xDE || b == 0xDF: // Map16 / Map32
		return true
	default:
		return false
	}
}

// decodeMessagePack decodes data to its native Go representation for
// re-feeding through the JSON/text pipeline stage.
func decodeMessagePack(data []byte) (interface{}, error) {
	var v interface{}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
