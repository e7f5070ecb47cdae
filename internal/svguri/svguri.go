// Package svguri encodes SVG documents as compact, percent-encoded data URIs.
//
// The output is usually smaller than the base64 form and stays readable:
// whitespace is collapsed, double quotes become single quotes, common hex
// colours are replaced by shorter CSS colour names and only the characters
// that must be escaped in a URI are escaped.
package svguri

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Prefix is the scheme marker every encoded URI starts with.
const Prefix = "data:image/svg+xml,"

const byteOrderMark = '\uFEFF'

// Encode returns the data URI for the given SVG text. The input is not
// validated; invalid UTF-8 sequences become U+FFFD.
func Encode(svg string) string {
	svg = strings.ToValidUTF8(svg, string(utf8.RuneError))
	svg = strings.TrimPrefix(svg, string(byteOrderMark))

	body := collapseWhitespace(svg)
	body = shortenColors(body)
	body = strings.ReplaceAll(body, `"`, "'")

	return Prefix + escape(body)
}

// EncodeBytes is Encode for raw file content.
func EncodeBytes(svg []byte) string {
	return Encode(string(svg))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace matches the ECMAScript \s class, which includes the BOM but not U+0085.
func isSpace(r rune) bool {
	if r == byteOrderMark {
		return true
	}
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r)
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes like encodeURIComponent, then relaxes the escapes
// browsers tolerate inside a data URI and lowercases the rest.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c):
			b.WriteByte(c)
		case c == ' ', c == '=', c == ':', c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(lower(upperhex[c>>4]))
			b.WriteByte(lower(upperhex[c&0x0f]))
		}
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// shortenColors swaps a "#rgb", "#rgbf", "#rrggbb" or "#rrggbbff" token for
// its CSS colour name when the name is shorter than the escaped hex form.
// A token only matches when no other word character follows it.
func shortenColors(s string) string {
	if strings.IndexByte(s, '#') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '#' {
			_, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
			i += size
			continue
		}

		end := i + 1
		for end < len(s) && isWordChar(s[end]) {
			end++
		}

		if name, ok := colorNames[strings.ToLower(s[i+1:end])]; ok {
			b.WriteString(name)
		} else {
			b.WriteString(s[i:end])
		}
		i = end
	}

	return b.String()
}

func isWordChar(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
