package decode

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

const svgSniffWindow = 4096

// looksLikeSVG implements spec §4.11 step 4: the first ≤4 KiB must be valid
// UTF-8 and, trimmed, either start with "<svg" directly, or start with an
// XML/doctype preamble that contains "<svg" before the window ends.
func looksLikeSVG(data []byte) bool {
	window := data
	if len(window) > svgSniffWindow {
		window = window[:svgSniffWindow]
	}
	if !utf8.Valid(window) {
		return false
	}

	text := strings.TrimSpace(string(window))
	if strings.HasPrefix(text, "<svg") {
		return true
	}
	if strings.HasPrefix(text, "<?xml") || strings.HasPrefix(text, "<!DOCTYPE") {
		return bytes.Contains([]byte(text), []byte("<svg"))
	}
	return false
}
