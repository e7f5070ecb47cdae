package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wolfeidau/bundlr/internal/naming"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	DevtoolNone   = "none"
	DevtoolInline = "inline"

	// DefaultInlineLimit is the largest SVG, in bytes, inlined as a data URI.
	DefaultInlineLimit = 1024
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Mode      string            `yaml:"-"`
	Output    Output            `yaml:"output"`
	Resolve   Resolve           `yaml:"resolve"`
	Entries   map[string]string `yaml:"entries"`
	SVG       SVG               `yaml:"svg"`
	Minify    bool              `yaml:"minify"`
	Devtool   string            `yaml:"devtool"`
	DevServer DevServer         `yaml:"devServer"`
	Watch     Watch             `yaml:"watch"`
}

type Output struct {
	// Directory the build writes to.
	Dir string `yaml:"dir"`
	// Remove the previous contents of Dir before each build.
	Clean            bool   `yaml:"clean"`
	HashDigestLength int    `yaml:"hashDigestLength"`
	HashDigest       string `yaml:"hashDigest"`
	// URL prefix for emitted files referenced from HTML, CSS and JS.
	PublicPath    string `yaml:"publicPath"`
	JSFilename    string `yaml:"jsFilename"`
	CSSFilename   string `yaml:"cssFilename"`
	AssetFilename string `yaml:"assetFilename"`
}

type Resolve struct {
	// Alias maps an import prefix such as "@src" to a directory.
	Alias map[string]string `yaml:"alias"`
}

type SVG struct {
	InlineLimit int `yaml:"inlineLimit"`
}

type DevServer struct {
	Listen      string   `yaml:"listen"`
	Static      Static   `yaml:"static"`
	WatchFiles  []string `yaml:"watchFiles"`
	CORSOrigins []string `yaml:"corsOrigins"`
	LiveReload  bool     `yaml:"liveReload"`
}

type Static struct {
	Directory  string `yaml:"directory"`
	PublicPath string `yaml:"publicPath"`
}

type Watch struct {
	Poll     bool          `yaml:"poll"`
	Interval time.Duration `yaml:"interval"`
	Ignored  []string      `yaml:"ignored"`
}

// Default returns the project defaults for the given mode.
func Default(mode string) Config {
	mode = NormalizeMode(mode)

	devtool := DevtoolInline
	if mode == ModeProduction {
		devtool = DevtoolNone
	}

	return Config{
		Mode: mode,
		Output: Output{
			Dir:              "dist",
			Clean:            true,
			HashDigestLength: 9,
			HashDigest:       naming.DigestHex,
			PublicPath:       "/",
			JSFilename:       "[name].js",
			CSSFilename:      "[name].[contenthash:9].css",
			AssetFilename:    "[name].[contenthash:9][ext]",
		},
		Resolve: Resolve{
			Alias: map[string]string{
				"@src": "src",
			},
		},
		Entries: map[string]string{
			"index": "src/views/index.html",
		},
		SVG: SVG{
			InlineLimit: DefaultInlineLimit,
		},
		Minify:  false,
		Devtool: devtool,
		DevServer: DevServer{
			Listen: "127.0.0.1:8080",
			Static: Static{
				Directory:  "dist",
				PublicPath: "",
			},
			WatchFiles: []string{"src/**/*.{scss,html}"},
			LiveReload: true,
		},
		Watch: Watch{
			Poll:     true,
			Interval: time.Second,
			Ignored:  []string{"node_modules/**"},
		},
	}
}

// NormalizeMode maps an environment value onto a mode: only "production"
// selects production.
func NormalizeMode(env string) string {
	if env == ModeProduction {
		return ModeProduction
	}
	return ModeDevelopment
}

func (c *Config) Production() bool {
	return c.Mode == ModeProduction
}

// Validate checks the config for values the build cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode))
	}

	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}

	if _, err := naming.NewHasher(c.Output.HashDigest, c.Output.HashDigestLength); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	for _, tmpl := range []string{c.Output.JSFilename, c.Output.CSSFilename, c.Output.AssetFilename} {
		if err := naming.Template(tmpl).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("output: %w", err))
		}
	}

	if len(c.Entries) == 0 {
		errs = append(errs, errors.New("at least one entry is required"))
	}
	for name, path := range c.Entries {
		if name == "" || path == "" {
			errs = append(errs, fmt.Errorf("entry %q has an empty name or path", name))
		}
	}

	if c.SVG.InlineLimit < 0 {
		errs = append(errs, fmt.Errorf("svg.inlineLimit must not be negative, got %d", c.SVG.InlineLimit))
	}

	if c.Devtool != DevtoolNone && c.Devtool != DevtoolInline {
		errs = append(errs, fmt.Errorf("devtool must be %q or %q, got %q", DevtoolNone, DevtoolInline, c.Devtool))
	}

	for _, pattern := range append(append([]string{}, c.DevServer.WatchFiles...), c.Watch.Ignored...) {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}

	if c.Watch.Interval <= 0 {
		errs = append(errs, fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}
