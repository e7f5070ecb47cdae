package svguri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple document",
			input:    `<svg xmlns="http://www.w3.org/2000/svg"><path fill="#ff0000" d="M0 0h1v1z"/></svg>`,
			expected: `data:image/svg+xml,%3csvg xmlns='http://www.w3.org/2000/svg'%3e%3cpath fill='red' d='M0 0h1v1z'/%3e%3c/svg%3e`,
		},
		{
			name:     "collapses whitespace",
			input:    "  <svg>\n\t<g/>\n</svg>  ",
			expected: "data:image/svg+xml,%3csvg%3e %3cg/%3e %3c/svg%3e",
		},
		{
			name:     "strips byte order mark",
			input:    "\uFEFF<svg/>",
			expected: "data:image/svg+xml,%3csvg/%3e",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "data:image/svg+xml,",
		},
		{
			name:     "escapes reserved characters",
			input:    "a&b;c,d+e?f%g",
			expected: "data:image/svg+xml,a%26b%3bc%2cd%2be%3ff%25g",
		},
		{
			name:     "keeps unreserved punctuation",
			input:    "-_.!~*'()",
			expected: "data:image/svg+xml,-_.!~*'()",
		},
		{
			name:     "encodes utf-8 bytes",
			input:    "é",
			expected: "data:image/svg+xml,%c3%a9",
		},
		{
			name:     "invalid utf-8 becomes replacement character",
			input:    "<svg>\xff</svg>",
			expected: "data:image/svg+xml,%3csvg%3e%ef%bf%bd%3c/svg%3e",
		},
		{
			name:     "fragment reference is not a colour",
			input:    "url(#grad)",
			expected: "data:image/svg+xml,url(%23grad)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Encode(tt.input))
		})
	}
}

func TestShortenColors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "six digits", input: "#ffffff", expected: "white"},
		{name: "three digits", input: "#000", expected: "black"},
		{name: "upper case", input: "#FF0000", expected: "red"},
		{name: "opaque alpha six digits", input: "#0000ffff", expected: "blue"},
		{name: "opaque alpha three digits", input: "#0f0f", expected: "lime"},
		{name: "first name wins", input: "#0ff", expected: "aqua"},
		{name: "no short form for long names", input: "#ff0", expected: "#ff0"},
		{name: "followed by word character", input: "#fffa", expected: "#fffa"},
		{name: "followed by punctuation", input: "fill:#f00;", expected: "fill:red;"},
		{name: "unknown colour", input: "#123456", expected: "#123456"},
		{name: "bare hash", input: "#", expected: "#"},
		{name: "multiple tokens", input: "#fff #000 #abc", expected: "white black #abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, shortenColors(tt.input))
		})
	}
}

func TestEncode_deterministic(t *testing.T) {
	svg := `<svg viewBox="0 0 10 10"><circle cx="5" cy="5" r="4" fill="#808080"/></svg>`

	first := Encode(svg)
	require.Equal(t, first, Encode(svg))
	require.Equal(t, first, EncodeBytes([]byte(svg)))
	require.True(t, strings.HasPrefix(first, Prefix))
	require.Contains(t, first, "fill='grey'")
}
