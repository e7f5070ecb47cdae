package assets

import (
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlr/internal/config"
	"github.com/wolfeidau/bundlr/internal/svguri"
)

// Decision is the outcome of the inlining policy for one asset.
type Decision int

const (
	SeparateFile Decision = iota
	Inline
)

func (d Decision) String() string {
	if d == Inline {
		return "inline"
	}
	return "separate_file"
}

// Policy decides whether an SVG is embedded as a data URI or emitted as its
// own file. The zero value inlines nothing but empty files; use NewPolicy.
type Policy struct {
	limit int
}

// NewPolicy returns a policy inlining assets of at most limit bytes.
func NewPolicy(limit int) Policy {
	return Policy{limit: limit}
}

// DefaultPolicy inlines SVGs up to 1KiB.
func DefaultPolicy() Policy {
	return NewPolicy(config.DefaultInlineLimit)
}

func (p Policy) Limit() int {
	return p.limit
}

// Decide returns Inline iff the content is no larger than the limit.
func (p Policy) Decide(content []byte, filename string) Decision {
	log.Debug().
		Str("filename", filename).
		Int("size", len(content)).
		Int("limit", p.limit).
		Msg("Evaluating data URL condition")

	if len(content) <= p.limit {
		return Inline
	}
	return SeparateFile
}

// Inline encodes the SVG content as a data URI. The content is not validated.
func (p Policy) Inline(content []byte, filename string) string {
	log.Debug().Str("filename", filename).Msg("Encoding data URL")

	return svguri.EncodeBytes(content)
}
