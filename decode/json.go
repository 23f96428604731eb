package decode

import (
	"fmt"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// prettyPrintJSON implements spec §4.11's JSON truncation: recursively
// walk the decoded value, replacing any string longer than maxLen
// characters with its prefix plus a hidden-content marker, then
// pretty-print with 2-space indent. truncated reports whether any string
// was actually cut.
func prettyPrintJSON(raw []byte, maxLen int) (text string, truncated bool, err error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, err
	}

	v = truncateStrings(v, maxLen, &truncated)

	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", false, err
	}
	return string(pretty), truncated, nil
}

func truncateStrings(v interface{}, maxLen int, truncated *bool) interface{} {
	switch t := v.(type) {
	case string:
		if maxLen <= 0 || utf8.RuneCountInString(t) <= maxLen {
			return t
		}
		runes := []rune(t)
		*truncated = true
		return string(runes[:maxLen]) + fmt.Sprintf("…(Total %d chars, content hidden)", len(runes))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = truncateStrings(e, maxLen, truncated)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = truncateStrings(e, maxLen, truncated)
		}
		return out
	default:
		return v
	}
}
