package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bigtree-zedis/zedis-core/model"
)

func TestDecodeEmpty(t *testing.T) {
	result := Decode(context.Background(), nil, "srv1", "key1", nil, 100)
	assert.Equal(t, model.FormatBytes, result.Format)
	assert.False(t, result.HasText)
}

func TestDecodePlainText(t *testing.T) {
	result := Decode(context.Background(), nil, "srv1", "key1", []byte("just some plain text"), 100)
	assert.Equal(t, model.FormatText, result.Format)
	assert.Equal(t, "just some plain text", result.Text)
}

func TestDecodeJSON(t *testing.T) {
	result := Decode(context.Background(), nil, "srv1", "key1", []byte(`{"a":1}`), 100)
	assert.Equal(t, model.FormatJSON, result.Format)
	assert.False(t, result.Truncated)
}

func TestDecodeJSONTruncated(t *testing.T) {
	long := `{"a":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`
	result := Decode(context.Background(), nil, "srv1", "key1", []byte(long), 5)
	assert.Equal(t, model.FormatPreview, result.Format)
	assert.True(t, result.Truncated)
}

func TestDecodeGzipWrappingJSONForcesPreview(t *testing.T) {
	gz := gzipBytes(t, []byte(`{"a":1}`))
	result := Decode(context.Background(), nil, "srv1", "key1", gz, 100)
	assert.Equal(t, model.FormatPreview, result.Format)
	assert.Contains(t, result.Text, "\"a\": 1")
	assert.Equal(t, "application/gzip", result.MIME)
}

func TestDecodeGzipWrappingPlainTextForcesPreview(t *testing.T) {
	gz := gzipBytes(t, []byte("just plain text inside"))
	result := Decode(context.Background(), nil, "srv1", "key1", gz, 100)
	assert.Equal(t, model.FormatPreview, result.Format)
	assert.Equal(t, "just plain text inside", result.Text)
}

func TestDecodeCorruptGzipKeepsFormatNoText(t *testing.T) {
	// Valid gzip magic header, corrupt body.
	corrupt := []byte{0x1f, 0x8b, 0x08, 0x00, 0, 0, 0, 0, 0, 0xff, 0xde, 0xad}
	result := Decode(context.Background(), nil, "srv1", "key1", corrupt, 100)
	assert.Equal(t, model.FormatGzip, result.Format)
	assert.False(t, result.HasText)
}

func TestDecodeMessagePackIsAlwaysPreviewUntruncated(t *testing.T) {
	long := make([]byte, 0)
	for i := 0; i < 50; i++ {
		long = append(long, 'z')
	}
	packed, err := msgpack.Marshal(map[string]interface{}{"value": string(long)})
	require.NoError(t, err)

	result := Decode(context.Background(), nil, "srv1", "key1", packed, 5)
	assert.Equal(t, model.FormatPreview, result.Format)
	assert.False(t, result.Truncated, "messagepack rendering never truncates, unlike plain JSON")
	assert.Contains(t, result.Text, string(long))
}

func TestDecodeSVGPassesThroughUndecoded(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"></svg>`
	result := Decode(context.Background(), nil, "srv1", "key1", []byte(svg), 100)
	assert.Equal(t, model.FormatSVG, result.Format)
	assert.False(t, result.HasText)
}

func TestDecodeProtobufSchemaTakesPriorityOverLZ4(t *testing.T) {
	data := encodeTestSession("carol", 42)
	matcher := func(serverID, key string) (model.ProtoSchema, bool) {
		return model.ProtoSchema{
			SchemaName:    "session",
			SchemaContent: testProtoSchema,
			TargetMessage: "Session",
		}, true
	}
	result := Decode(context.Background(), matcher, "srv1", "session:1", data, 100)
	assert.Equal(t, model.FormatProtobuf, result.Format)
	assert.Contains(t, result.Text, "carol")
}

func TestDecodeLengthPrefixedLZ4WhenNoSchemaMatches(t *testing.T) {
	plain := []byte(`{"repeatable":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`)
	framed := buildLengthPrefixedLZ4(t, plain)

	result := Decode(context.Background(), nil, "srv1", "key1", framed, 100)
	assert.Equal(t, model.FormatPreview, result.Format)
	assert.Contains(t, result.Text, "repeatable")
}

func TestDecodeImageFormatsPassThroughWithoutText(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0, 0, 0, 0, 0}
	result := Decode(context.Background(), nil, "srv1", "key1", png, 100)
	assert.Equal(t, model.FormatPNG, result.Format)
	assert.False(t, result.HasText)
}
