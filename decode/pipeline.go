// Package decode implements spec §4.11: sniffing a raw byte value's format
// and rendering it as displayable text where possible.
package decode

import (
	"context"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/bigtree-zedis/zedis-core/model"
)

// Result is the output of the decode pipeline.
type Result struct {
	Format    model.DataFormat
	Text      string
	HasText   bool
	MIME      string
	Truncated bool
}

// SchemaMatcher resolves a registered Protobuf schema for (serverID, key),
// implemented by kvstore.Store.MatchSchema.
type SchemaMatcher func(serverID, key string) (model.ProtoSchema, bool)

// Decode runs the full pipeline of spec §4.11: an initial classification
// pass (magic numbers, framed Snappy, SVG, MessagePack) followed by a
// format-specific attempt to render the value as text. A format that fails
// to decode falls back to reporting the initial classification with no
// text, rather than falling through to a later stage: detection and
// rendering are two separate passes, not a first-match-wins chain.
func Decode(ctx context.Context, matcher SchemaMatcher, serverID, key string, data []byte, maxTruncateLength int) Result {
	if len(data) == 0 {
		return Result{Format: model.FormatBytes}
	}

	format, mime := detectFormat(data)

	var rendered *Result
	switch format {
	case model.FormatMsgPack:
		rendered = renderMessagePack(data)

	case model.FormatGzip:
		if decoded, err := decodeGzip(data); err == nil {
			rendered = renderDecompressed(decoded, maxTruncateLength)
		}

	case model.FormatZstd:
		if decoded, err := decodeZstd(data); err == nil {
			rendered = renderDecompressed(decoded, maxTruncateLength)
		}

	case model.FormatSnappy:
		if decoded, err := decodeFramedSnappy(data); err == nil {
			rendered = renderDecompressed(decoded, maxTruncateLength)
		}

	case model.FormatSVG, model.FormatJPEG, model.FormatPNG, model.FormatWebP, model.FormatGIF:
		// Displayed as-is by the caller; no text rendering to attempt.

	default:
		rendered = decodeUnrecognised(ctx, matcher, serverID, key, data, maxTruncateLength)
	}

	if rendered != nil {
		rendered.MIME = mime
		return *rendered
	}
	return Result{Format: format, MIME: mime}
}

// decodeUnrecognised implements the "default" arm of the original
// detect_and_update: a registered Protobuf schema takes priority, then a
// length-prefixed LZ4 block, then plain text/JSON rendering.
func decodeUnrecognised(ctx context.Context, matcher SchemaMatcher, serverID, key string, data []byte, maxTruncateLength int) *Result {
	if matcher != nil {
		if schema, ok := matcher(serverID, key); ok {
			if jsonBytes, err := decodeProtobuf(ctx, schema, data); err == nil {
				return &Result{Format: model.FormatProtobuf, Text: string(jsonBytes), HasText: true}
			}
		}
	}

	if decoded, ok := tryLengthPrefixedLZ4(data); ok {
		return renderDecompressed(decoded, maxTruncateLength)
	}

	return formatText(data, maxTruncateLength)
}

// renderMessagePack mirrors detect_and_update's MessagePack arm: decode,
// then pretty-print as JSON unconditionally tagged Preview. Unlike plain
// text rendering this never runs the truncation pass; a MessagePack value
// that fails to decode as a JSON-representable value falls back to no text
// rather than an error.
func renderMessagePack(data []byte) *Result {
	v, err := decodeMessagePack(data)
	if err != nil {
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil
	}
	return &Result{Format: model.FormatPreview, Text: string(pretty), HasText: true}
}

// renderDecompressed mirrors the original's process_decompressed closure:
// decompressed bytes are run back through text/JSON rendering, but the
// resulting format is forced to Preview regardless of whether the content
// turned out to be JSON or plain text. A decompressed payload that isn't
// valid UTF-8 reports no text at all (the caller keeps the compressed
// format tag with no text).
func renderDecompressed(data []byte, maxTruncateLength int) *Result {
	inner := formatText(data, maxTruncateLength)
	if inner == nil {
		return nil
	}
	return &Result{Format: model.FormatPreview, Text: inner.Text, HasText: true, Truncated: inner.Truncated}
}

// formatText implements the original format_text: UTF-8 decode, then
// attempt pretty-printed JSON, falling back to plain text. Returns nil if
// the bytes aren't valid UTF-8.
func formatText(data []byte, maxTruncateLength int) *Result {
	if !utf8.Valid(data) {
		return nil
	}
	s := string(data)

	if looksLikeJSON(s) {
		if text, truncated, err := prettyPrintJSON(data, maxTruncateLength); err == nil {
			format := model.FormatJSON
			if truncated {
				format = model.FormatPreview
			}
			return &Result{Format: format, Text: text, HasText: true, Truncated: truncated}
		}
	}

	return &Result{Format: model.FormatText, Text: s, HasText: true}
}

// looksLikeJSON mirrors pretty_json's object/array bracket check, which
// guards the (more expensive) parse attempt.
func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
