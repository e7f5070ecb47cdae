package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlr/internal/naming"
)

// emitter writes output files and records them for the manifest. esbuild
// runs plugin callbacks concurrently so every method is safe for concurrent use.
type emitter struct {
	outDir string
	root   string

	mu      sync.Mutex
	files   map[string]EmittedFile
	inlined map[string]InlinedAsset
	inputs  map[string]struct{}
}

func newEmitter(outDir, root string) *emitter {
	return &emitter{
		outDir:  outDir,
		root:    root,
		files:   make(map[string]EmittedFile),
		inlined: make(map[string]InlinedAsset),
		inputs:  make(map[string]struct{}),
	}
}

// emit writes content to name, relative to the output directory.
func (e *emitter) emit(source, name string, kind Kind, content []byte) error {
	target := filepath.Join(e.outDir, filepath.FromSlash(name))

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.files[name]; exists {
		// the same hashed name means the same content
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Info().Str("file", name).Str("kind", string(kind)).Int("size", len(content)).Msg("Built file")

	e.files[name] = EmittedFile{Source: e.rel(source), Output: name, Kind: kind, Size: len(content)}
	return nil
}

func (e *emitter) recordInlined(source string, size int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inlined[source] = InlinedAsset{Source: e.rel(source), Size: size}
}

func (e *emitter) recordInput(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inputs[path] = struct{}{}
}

func (e *emitter) rel(path string) string {
	if rel, err := filepath.Rel(e.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// snapshot returns the recorded files, inlined assets and inputs in a stable order.
func (e *emitter) snapshot() ([]EmittedFile, []InlinedAsset, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	files := make([]EmittedFile, 0, len(e.files))
	for _, f := range e.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Output < files[j].Output })

	inlined := make([]InlinedAsset, 0, len(e.inlined))
	for _, a := range e.inlined {
		inlined = append(inlined, a)
	}
	sort.Slice(inlined, func(i, j int) bool { return inlined[i].Source < inlined[j].Source })

	inputs := make([]string, 0, len(e.inputs))
	for p := range e.inputs {
		inputs = append(inputs, p)
	}
	sort.Strings(inputs)

	return files, inlined, inputs
}

// assetResolver turns an asset file into the URL that replaces its import:
// a data URI for SVGs the policy inlines, otherwise the public URL of an
// emitted, content hashed copy.
type assetResolver struct {
	policy     Policy
	hasher     *naming.Hasher
	template   naming.Template
	publicPath string
	emitter    *emitter

	mu    sync.Mutex
	cache map[string]string
}

func (r *assetResolver) URL(path string) (string, error) {
	r.mu.Lock()
	url, ok := r.cache[path]
	r.mu.Unlock()
	if ok {
		return url, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}
	r.emitter.recordInput(path)

	filename := r.emitter.rel(path)

	if isSVG(path) && r.policy.Decide(content, filename) == Inline {
		url = r.policy.Inline(content, filename)
		r.emitter.recordInlined(path, len(content))
	} else {
		name := r.template.Render(r.hasher, path, content)
		if err := r.emitter.emit(path, name, KindAsset, content); err != nil {
			return "", err
		}
		url = publicURL(r.publicPath, name)
	}

	r.mu.Lock()
	r.cache[path] = url
	r.mu.Unlock()

	return url, nil
}

func isSVG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}

// publicURL joins the public path and an output name.
func publicURL(publicPath, name string) string {
	if publicPath == "" {
		return name
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + name
}
