package decode

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bigtree-zedis/zedis-core/model"
)

// mimeToFormat maps the handful of mimetype detections spec §4.11 step 2
// cares about onto our DataFormat tags. Anything else mimetype recognises
// (text, archives, documents, ...) falls through to the later pipeline
// stages, since those have their own, more specific rules.
var mimeToFormat = map[string]model.DataFormat{
	"application/gzip": model.FormatGzip,
	"application/zstd": model.FormatZstd,
	"image/jpeg":       model.FormatJPEG,
	"image/png":        model.FormatPNG,
	"image/webp":       model.FormatWebP,
	"image/gif":        model.FormatGIF,
}

func sniffMagic(data []byte) (format model.DataFormat, mime string, ok bool) {
	mt := mimetype.Detect(data)
	for mt != nil {
		if f, known := mimeToFormat[mt.String()]; known {
			return f, mt.String(), true
		}
		mt = mt.Parent()
	}
	return "", "", false
}

// detectFormat is the Go counterpart of the original detect_and_update's
// initial classification pass: magic-number sniffing first, then the
// cheaper structural heuristics, in that priority order. It never inspects
// decompressed content; that is the caller's job.
func detectFormat(data []byte) (format model.DataFormat, mime string) {
	if len(data) == 0 {
		return model.FormatBytes, ""
	}
	if format, mime, ok := sniffMagic(data); ok {
		return format, mime
	}
	if isFramedSnappy(data) {
		return model.FormatSnappy, "application/snappy"
	}
	if looksLikeSVG(data) {
		return model.FormatSVG, "image/svg+xml"
	}
	if looksLikeMessagePack(data) {
		return model.FormatMsgPack, ""
	}
	return model.FormatBytes, ""
}

// snappyFrameHeader is the 10-byte stream identifier of framed Snappy, per
// spec §4.11 step 3.
var snappyFrameHeader = []byte{0xFF, 0x06, 0x00, 0x00, 0x73, 0x4E, 0x61, 0x50, 0x70, 0x59}

func isFramedSnappy(data []byte) bool {
	return bytes.HasPrefix(data, snappyFrameHeader)
}
