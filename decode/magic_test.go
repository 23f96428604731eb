package decode

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/model"
)

func gzipBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, plain []byte) []byte {
	t.Helper()
	w, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	return w.EncodeAll(plain, nil)
}

func TestDetectFormatMagicNumbers(t *testing.T) {
	gz := gzipBytes(t, []byte(`{"hello":"world"}`))
	format, mime := detectFormat(gz)
	assert.Equal(t, model.FormatGzip, format)
	assert.Equal(t, "application/gzip", mime)

	zst := zstdBytes(t, []byte(`{"hello":"world"}`))
	format, mime = detectFormat(zst)
	assert.Equal(t, model.FormatZstd, format)
	assert.Equal(t, "application/zstd", mime)

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	format, _ = detectFormat(png)
	assert.Equal(t, model.FormatPNG, format)
}

func TestDetectFormatEmpty(t *testing.T) {
	format, mime := detectFormat(nil)
	assert.Equal(t, model.FormatBytes, format)
	assert.Empty(t, mime)
}

func TestDetectFormatFramedSnappy(t *testing.T) {
	format, mime := detectFormat(snappyFrameHeader)
	assert.Equal(t, model.FormatSnappy, format)
	assert.Equal(t, "application/snappy", mime)
}

func TestDetectFormatPlainTextIsBytesNotMagic(t *testing.T) {
	format, _ := detectFormat([]byte("hello world, just some text"))
	assert.Equal(t, model.FormatBytes, format)
}
