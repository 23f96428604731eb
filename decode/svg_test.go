package decode

import "testing"

func TestLooksLikeSVG(t *testing.T) {
	cases := []struct {
		name string
		data string
		want bool
	}{
		{"bare svg tag", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, true},
		{"xml preamble with svg", `<?xml version="1.0"?><svg></svg>`, true},
		{"doctype preamble with svg", `<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN"><svg></svg>`, true},
		{"xml preamble without svg", `<?xml version="1.0"?><root></root>`, false},
		{"plain html", `<html><body>hi</body></html>`, false},
		{"plain text", `just some text`, false},
		{"empty", ``, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := looksLikeSVG([]byte(c.data)); got != c.want {
				t.Errorf("looksLikeSVG(%q) = %v, want %v", c.data, got, c.want)
			}
		})
	}
}

func TestLooksLikeSVGRejectsInvalidUTF8(t *testing.T) {
	data := append([]byte("<svg"), 0xFF, 0xFE)
	if looksLikeSVG(data) {
		t.Error("expected invalid UTF-8 to be rejected")
	}
}
