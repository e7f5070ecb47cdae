package assets

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const pluginName = "bundlr-assets"

const (
	rawNamespace   = "bundlr-raw"
	assetNamespace = "bundlr-asset"
)

var (
	// "raw" anywhere in the query selects the source text, e.g. "?raw" or "?inline&raw=1"
	rawSVGFilter = `(?i)\.svg\?[^#]*raw`
	assetFilter  = `(?i)\.(svg|png|jpe?g|gif|webp|avif|ico|bmp|woff2?|ttf|otf|eot)([?#].*)?$`
)

// aliases maps import prefixes to directories, e.g. "@src" to "/project/src".
type aliases map[string]string

// apply rewrites spec when it starts with an alias followed by "/" or nothing.
func (a aliases) apply(spec string) (string, bool) {
	for _, prefix := range a.prefixes() {
		dir := a[prefix]
		if spec == prefix {
			return dir, true
		}
		if rest, ok := strings.CutPrefix(spec, prefix+"/"); ok {
			return filepath.Join(dir, filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

// resolve maps an import specifier to an absolute file path. Bare package
// specifiers are left to esbuild.
func (a aliases) resolve(spec, resolveDir string) (string, bool) {
	if p, ok := a.apply(spec); ok {
		return p, true
	}
	if filepath.IsAbs(spec) {
		return spec, true
	}
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		return filepath.Join(resolveDir, filepath.FromSlash(spec)), true
	}
	return "", false
}

// resolveAsset maps an asset reference to a file. Inside CSS url() a bare
// "icon.svg" is relative to the stylesheet, as it is in the browser.
func (a aliases) resolveAsset(spec, resolveDir string, kind api.ResolveKind) (string, bool) {
	if isURL(spec) {
		return "", false
	}
	if p, ok := a.resolve(spec, resolveDir); ok {
		return p, true
	}
	if kind == api.ResolveCSSURLToken && resolveDir != "" && spec != "" {
		return filepath.Join(resolveDir, filepath.FromSlash(spec)), true
	}
	return "", false
}

// prefixes returns the alias keys, longest first so "@src/icons" wins over "@src".
func (a aliases) prefixes() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}

// assetsPlugin wires the alias map, the raw SVG rule and the inlining policy
// into esbuild's resolution.
func assetsPlugin(alias aliases, resolver *assetResolver) api.Plugin {
	return api.Plugin{
		Name: pluginName,
		Setup: func(build api.PluginBuild) {
			// "icon.svg?raw" loads the SVG source text untouched
			build.OnResolve(api.OnResolveOptions{Filter: rawSVGFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					spec, _ := splitSuffix(args.Path)
					path, ok := alias.resolveAsset(spec, args.ResolveDir, args.Kind)
					if !ok {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: path, Namespace: rawNamespace}, nil
				})

			build.OnResolve(api.OnResolveOptions{Filter: assetFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					spec, suffix := splitSuffix(args.Path)
					path, ok := alias.resolveAsset(spec, args.ResolveDir, args.Kind)
					if !ok {
						return api.OnResolveResult{}, nil
					}

					assetURL, err := resolver.URL(path)
					if err != nil {
						return api.OnResolveResult{}, err
					}

					// CSS url() keeps the URL verbatim, JS gets it as the default export
					if args.Kind == api.ResolveCSSURLToken {
						return api.OnResolveResult{Path: withSuffix(assetURL, suffix), External: true}, nil
					}
					return api.OnResolveResult{Path: path, Namespace: assetNamespace, PluginData: assetURL}, nil
				})

			for _, prefix := range alias.prefixes() {
				filter := "^" + regexp.QuoteMeta(prefix) + "(/|$)"
				build.OnResolve(api.OnResolveOptions{Filter: filter},
					func(args api.OnResolveArgs) (api.OnResolveResult, error) {
						target, _ := alias.apply(args.Path)
						res := build.Resolve(target, api.ResolveOptions{
							Importer:   args.Importer,
							ResolveDir: args.ResolveDir,
							Kind:       args.Kind,
						})
						if len(res.Errors) > 0 {
							return api.OnResolveResult{Errors: res.Errors, Warnings: res.Warnings}, nil
						}
						return api.OnResolveResult{
							Path:      res.Path,
							External:  res.External,
							Namespace: res.Namespace,
							Suffix:    res.Suffix,
							Warnings:  res.Warnings,
						}, nil
					})
			}

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: rawNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, fmt.Errorf("failed to read %s: %w", args.Path, err)
					}
					resolver.emitter.recordInput(args.Path)

					contents := string(data)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderText}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: assetNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					assetURL, _ := args.PluginData.(string)
					return api.OnLoadResult{Contents: &assetURL, Loader: api.LoaderText}, nil
				})
		},
	}
}

// splitSuffix separates a trailing "?query" or "#fragment" from a reference.
func splitSuffix(spec string) (string, string) {
	if i := strings.IndexAny(spec, "?#"); i >= 0 {
		return spec[:i], spec[i:]
	}
	return spec, ""
}

// isURL reports whether spec names a remote or inline resource rather than a file.
func isURL(spec string) bool {
	if strings.HasPrefix(spec, "//") {
		return true
	}
	u, err := url.Parse(spec)
	// single letter schemes are Windows drive letters
	return err == nil && len(u.Scheme) > 1
}

// withSuffix puts the query or fragment of the original reference back on
// the emitted URL. A data URI only keeps the fragment.
func withSuffix(u, suffix string) string {
	if suffix == "" {
		return u
	}
	if strings.HasPrefix(u, "data:") {
		_, fragment, ok := strings.Cut(suffix, "#")
		if !ok {
			return u
		}
		return u + "#" + fragment
	}
	return u + suffix
}
