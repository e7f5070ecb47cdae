package assets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	ErrNoEntryPoints = errors.New("no entry points found")
	ErrBuildFailed   = errors.New("esbuild failed with errors")
)

// BuildMetadata is the subset of the esbuild metafile the builder reads.
type BuildMetadata struct {
	Inputs  map[string]struct{}   `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string `json:"entryPoint"`
	CSSBundle  string `json:"cssBundle"`
}

// Kind classifies an emitted file.
type Kind string

const (
	KindHTML       Kind = "html"
	KindScript     Kind = "script"
	KindStylesheet Kind = "stylesheet"
	KindAsset      Kind = "asset"
)

// EmittedFile is one file written to the output directory.
type EmittedFile struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Kind   Kind   `json:"kind"`
	Size   int    `json:"size"`
}

// InlinedAsset is an asset embedded as a data URI instead of being emitted.
type InlinedAsset struct {
	Source string `json:"source"`
	Size   int    `json:"size"`
}

// Manifest is written next to the build output as manifest.json.
type Manifest struct {
	BuildID string         `json:"buildId"`
	Mode    string         `json:"mode"`
	Files   []EmittedFile  `json:"files"`
	Inlined []InlinedAsset `json:"inlined"`
}

// Result describes a completed build pass.
type Result struct {
	Manifest
	// Inputs are the absolute paths of every file the build read.
	Inputs   []string      `json:"-"`
	Duration time.Duration `json:"-"`
}

// BuildError carries every error esbuild reported for a build pass.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return ErrBuildFailed.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ErrBuildFailed, formatMessage(e.Messages[0]))
	if n := len(e.Messages) - 1; n > 0 {
		fmt.Fprintf(&b, " (and %d more)", n)
	}
	return b.String()
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
