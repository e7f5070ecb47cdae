package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlr/internal/config"
	"github.com/wolfeidau/bundlr/internal/htmlentry"
	"github.com/wolfeidau/bundlr/internal/naming"
	"github.com/wolfeidau/bundlr/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/wolfeidau/bundlr/internal/assets"

	// ManifestFile is written to the output directory after every build.
	ManifestFile = "manifest.json"
)

type Option func(*Builder)

// WithInjectedScript appends an inline script to every HTML entry, used by
// the dev server for live reload.
func WithInjectedScript(source string) Option {
	return func(b *Builder) {
		b.injected = source
	}
}

// WithPolicy overrides the inlining policy derived from the config.
func WithPolicy(p Policy) Option {
	return func(b *Builder) {
		b.policy = p
	}
}

// Builder runs build passes for a project. Passes are serialised.
type Builder struct {
	cfg      *config.Config
	root     string
	policy   Policy
	hasher   *naming.Hasher
	injected string

	mu   sync.Mutex
	last *Result
}

// New creates a builder for the project rooted at root.
func New(cfg *config.Config, root string, opts ...Option) (*Builder, error) {
	hasher, err := naming.NewHasher(cfg.Output.HashDigest, cfg.Output.HashDigestLength)
	if err != nil {
		return nil, err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		cfg:    cfg,
		root:   root,
		policy: NewPolicy(cfg.SVG.InlineLimit),
		hasher: hasher,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// LastResult returns the result of the last successful build, or nil.
func (b *Builder) LastResult() *Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.last
}

// Build runs one build pass: clean, bundle every HTML entry, write the manifest.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	started := time.Now()
	buildID := uuid.Must(uuid.NewV7()).String()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "assets.Build", trace.WithAttributes(
		attribute.String("build.id", buildID),
		attribute.String("build.mode", b.cfg.Mode),
	))
	defer span.End()

	metrics := telemetry.GetMetrics()
	modeAttr := metric.WithAttributes(attribute.String("mode", b.cfg.Mode))

	res, err := b.build(ctx, buildID)

	elapsed := time.Since(started)
	metrics.BuildsTotal.Add(ctx, 1, modeAttr)
	metrics.BuildDuration.Record(ctx, float64(elapsed.Milliseconds()), modeAttr)

	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1, modeAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Duration = elapsed
	metrics.AssetsInlinedTotal.Add(ctx, int64(len(res.Inlined)), modeAttr)
	metrics.AssetsEmittedTotal.Add(ctx, int64(len(res.Files)), modeAttr)

	log.Info().
		Str("build_id", buildID).
		Int("files", len(res.Files)).
		Int("inlined", len(res.Inlined)).
		Dur("duration", elapsed).
		Msg("Build complete")

	b.last = res
	return res, nil
}

func (b *Builder) build(ctx context.Context, buildID string) (*Result, error) {
	if len(b.cfg.Entries) == 0 {
		return nil, ErrNoEntryPoints
	}

	outDir := b.cfg.Output.Dir
	if b.cfg.Output.Clean {
		if err := cleanOutput(ctx, outDir, b.root); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	em := newEmitter(outDir, b.root)
	resolver := &assetResolver{
		policy:     b.policy,
		hasher:     b.hasher,
		template:   naming.Template(b.cfg.Output.AssetFilename),
		publicPath: b.cfg.Output.PublicPath,
		emitter:    em,
		cache:      make(map[string]string),
	}

	names := make([]string, 0, len(b.cfg.Entries))
	for name := range b.cfg.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	log.Info().Strs("entrypoints", names).Str("mode", b.cfg.Mode).Msg("Building assets")

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.buildEntry(name, b.cfg.Entries[name], em, resolver); err != nil {
			return nil, fmt.Errorf("entry %s: %w", name, err)
		}
	}

	files, inlined, inputs := em.snapshot()
	manifest := Manifest{
		BuildID: buildID,
		Mode:    b.cfg.Mode,
		Files:   files,
		Inlined: inlined,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestFile), data, 0o644); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return &Result{Manifest: manifest, Inputs: inputs}, nil
}

// buildEntry bundles everything one HTML entry references and writes the
// rewritten HTML as <name>.html.
func (b *Builder) buildEntry(name, htmlPath string, em *emitter, resolver *assetResolver) error {
	f, err := os.Open(htmlPath)
	if err != nil {
		return fmt.Errorf("failed to open html entry: %w", err)
	}
	doc, err := htmlentry.Parse(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	em.recordInput(htmlPath)

	alias := aliases(b.cfg.Resolve.Alias)
	htmlDir := filepath.Dir(htmlPath)

	resolveRef := func(ref *htmlentry.Ref) string {
		if p, ok := alias.apply(ref.Path()); ok {
			return p
		}
		return filepath.Join(htmlDir, filepath.FromSlash(ref.Path()))
	}

	var classic, modules []*htmlentry.Ref
	for _, ref := range doc.Refs {
		switch {
		case ref.Kind == htmlentry.Asset:
			url, err := resolver.URL(resolveRef(ref))
			if err != nil {
				return err
			}
			ref.Set(url)
		case ref.Module:
			modules = append(modules, ref)
		default:
			classic = append(classic, ref)
		}
	}

	groups := []struct {
		format api.Format
		refs   []*htmlentry.Ref
	}{
		{format: api.FormatIIFE, refs: classic},
		{format: api.FormatESModule, refs: modules},
	}

	for _, group := range groups {
		if len(group.refs) == 0 {
			continue
		}

		var entries []string
		seen := make(map[string]bool)
		for _, ref := range group.refs {
			if p := resolveRef(ref); !seen[p] {
				seen[p] = true
				entries = append(entries, p)
			}
		}

		outputs, err := b.bundle(group.format, entries, alias, resolver)
		if err != nil {
			return err
		}

		for _, ref := range group.refs {
			if err := b.emitBundle(doc, ref, resolveRef(ref), outputs, em); err != nil {
				return err
			}
		}
	}

	if b.injected != "" {
		doc.AppendScript(b.injected)
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}

	return em.emit(htmlPath, name+".html", KindHTML, buf.Bytes())
}

func (b *Builder) emitBundle(doc *htmlentry.Document, ref *htmlentry.Ref, entry string, outputs map[string]bundleOutput, em *emitter) error {
	out, ok := outputs[entry]
	if !ok {
		return fmt.Errorf("no build output for %s", ref.Value)
	}

	kind, tmpl := KindScript, naming.Template(b.cfg.Output.JSFilename)
	if ref.Kind == htmlentry.Stylesheet {
		kind, tmpl = KindStylesheet, naming.Template(b.cfg.Output.CSSFilename)
	}

	outName := tmpl.Render(b.hasher, entry, out.contents)
	if err := em.emit(entry, outName, kind, out.contents); err != nil {
		return err
	}
	ref.Set(publicURL(b.cfg.Output.PublicPath, outName))

	// CSS imported from a script is emitted next to it and linked from <head>
	if out.cssBundle != nil {
		cssName := naming.Template(b.cfg.Output.CSSFilename).Render(b.hasher, entry, out.cssBundle)
		if err := em.emit(entry, cssName, KindStylesheet, out.cssBundle); err != nil {
			return err
		}
		doc.AppendStylesheet(publicURL(b.cfg.Output.PublicPath, cssName))
	}

	return nil
}

type bundleOutput struct {
	contents  []byte
	cssBundle []byte
}

// bundle runs esbuild over the entries and returns the output for each
// entry keyed by its absolute path.
func (b *Builder) bundle(format api.Format, entries []string, alias aliases, resolver *assetResolver) (map[string]bundleOutput, error) {
	result := api.Build(b.buildOptions(format, entries, alias, resolver))

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", formatMessage(msg)).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", formatMessage(msg)).Msg("Build error")
		}
		return nil, &BuildError{Messages: result.Errors}
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	for input := range metadata.Inputs {
		if strings.HasPrefix(input, rawNamespace+":") || strings.HasPrefix(input, assetNamespace+":") || strings.HasPrefix(input, "<") {
			continue
		}
		resolver.emitter.recordInput(b.abs(input))
	}

	contents := make(map[string][]byte, len(result.OutputFiles))
	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(b.root, file.Path)
		if err != nil {
			return nil, err
		}
		contents[filepath.ToSlash(rel)] = file.Contents
	}

	outputs := make(map[string]bundleOutput, len(entries))
	for outPath, info := range metadata.Outputs {
		if info.EntryPoint == "" {
			continue
		}

		out := bundleOutput{contents: contents[outPath]}
		if info.CSSBundle != "" {
			out.cssBundle = contents[info.CSSBundle]
		}
		outputs[b.abs(info.EntryPoint)] = out
	}

	for _, entry := range entries {
		if _, ok := outputs[entry]; !ok {
			return nil, errors.New("entrypoint not found in metadata")
		}
	}

	return outputs, nil
}

func (b *Builder) buildOptions(format api.Format, entries []string, alias aliases, resolver *assetResolver) api.BuildOptions {
	return api.BuildOptions{
		EntryPoints:       entries,
		AbsWorkingDir:     b.root,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Outdir:            b.cfg.Output.Dir,
		Outbase:           b.root,
		EntryNames:        "[dir]/[name]",
		Format:            format,
		Platform:          api.PlatformBrowser,
		MinifyWhitespace:  b.cfg.Minify,
		MinifyIdentifiers: b.cfg.Minify,
		MinifySyntax:      b.cfg.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(b.cfg.Devtool == config.DevtoolInline, api.SourceMapInline, api.SourceMapNone),
		Define: map[string]string{
			"process.env.NODE_ENV": fmt.Sprintf("%q", b.cfg.Mode),
		},
		Loader: map[string]api.Loader{
			".css": api.LoaderCSS,
		},
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{assetsPlugin(alias, resolver)},
	}
}

// abs resolves a metafile path, which esbuild writes relative to the working directory.
func (b *Builder) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.root, filepath.FromSlash(path))
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
