package naming

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

const (
	DigestHex    = "hex"
	DigestBase58 = "base58"

	// MaxDigestLength is the longest hash a template can request.
	MaxDigestLength = 16
)

var (
	ErrUnknownDigest = errors.New("unknown hash digest")

	placeholderRe = regexp.MustCompile(`\[(name|ext|hash|contenthash)(?::(\d+))?\]`)
)

// Hasher computes the content hash used in emitted filenames.
type Hasher struct {
	digest string
	length int
}

// NewHasher returns a hasher producing digests of the given encoding, truncated to length.
func NewHasher(digest string, length int) (*Hasher, error) {
	switch digest {
	case DigestHex, DigestBase58:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDigest, digest)
	}

	if length < 1 || length > MaxDigestLength {
		return nil, fmt.Errorf("hash digest length must be between 1 and %d, got %d", MaxDigestLength, length)
	}

	return &Hasher{digest: digest, length: length}, nil
}

// Sum returns the full encoded CRC-64/NVME digest of content.
func (h *Hasher) Sum(content []byte) string {
	crc := crc64nvme.New()
	_, _ = crc.Write(content)
	sum := crc.Sum(nil)

	if h.digest == DigestBase58 {
		return base58.Encode(sum)
	}
	return hex.EncodeToString(sum)
}

// Hash returns the digest of content truncated to n characters, or to the
// hasher's default length when n is zero.
func (h *Hasher) Hash(content []byte, n int) string {
	if n <= 0 {
		n = h.length
	}

	sum := h.Sum(content)
	if n < len(sum) {
		return sum[:n]
	}
	return sum
}

// Template is a filename pattern such as "[name].[contenthash:9].css".
type Template string

// Render expands the template for a source file and its emitted content.
// [ext] includes the leading dot, [hash] and [contenthash] are the same value.
func (t Template) Render(h *Hasher, source string, content []byte) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return placeholderRe.ReplaceAllStringFunc(string(t), func(match string) string {
		parts := placeholderRe.FindStringSubmatch(match)
		switch parts[1] {
		case "name":
			return name
		case "ext":
			return ext
		default:
			n, _ := strconv.Atoi(parts[2])
			return h.Hash(content, n)
		}
	})
}

// Validate reports whether every bracketed placeholder in t is known.
func (t Template) Validate() error {
	if t == "" {
		return errors.New("filename template is empty")
	}

	rest := placeholderRe.ReplaceAllString(string(t), "")
	if i := strings.IndexByte(rest, '['); i >= 0 {
		return fmt.Errorf("filename template %q has an unknown placeholder", string(t))
	}

	return nil
}
