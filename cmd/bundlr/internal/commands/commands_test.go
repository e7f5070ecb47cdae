package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundlr/internal/assets"
	"github.com/wolfeidau/bundlr/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestInlineCmd_run(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "dot.svg")
	writeFile(t, small, `<svg xmlns="http://www.w3.org/2000/svg"><circle fill="#ff0000" r="1"/></svg>`)

	large := filepath.Join(dir, "big.svg")
	writeFile(t, large, `<svg xmlns="http://www.w3.org/2000/svg">`+strings.Repeat(`<rect width="1"/>`, 100)+`</svg>`)

	tests := []struct {
		name         string
		file         string
		limit        int
		wantDecision string
		wantURI      string
	}{
		{
			name:         "small svg is inlined",
			file:         small,
			limit:        1024,
			wantDecision: "decision: inline",
			wantURI:      "data:image/svg+xml,%3csvg xmlns='http://www.w3.org/2000/svg'%3e%3ccircle fill='red' r='1'/%3e%3c/svg%3e",
		},
		{
			name:         "large svg is a separate file",
			file:         large,
			limit:        1024,
			wantDecision: "decision: separate_file",
		},
		{
			name:         "zero limit",
			file:         small,
			limit:        0,
			wantDecision: "decision: separate_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &InlineCmd{File: tt.file}

			require.NoError(t, cmd.run(&out, assets.NewPolicy(tt.limit)))

			assert.Contains(t, out.String(), tt.wantDecision)
			if tt.wantURI != "" {
				assert.Contains(t, out.String(), tt.wantURI)
			} else {
				assert.NotContains(t, out.String(), "data:image/svg+xml,")
			}
		})
	}
}

func TestInlineCmd_missingFile(t *testing.T) {
	cmd := &InlineCmd{File: filepath.Join(t.TempDir(), "missing.svg")}

	err := cmd.run(&bytes.Buffer{}, assets.DefaultPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestGlobals_loadConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bundlr.yaml"), "output:\n  dir: public\nsvg:\n  inlineLimit: 2048\n")

	g := &Globals{Root: root, Config: "bundlr.yaml", Mode: "production"}
	cfg, gotRoot, err := g.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, root, gotRoot)
	assert.Equal(t, config.ModeProduction, cfg.Mode)
	assert.Equal(t, filepath.Join(root, "public"), cfg.Output.Dir)
	assert.Equal(t, 2048, cfg.SVG.InlineLimit)
}

func TestGlobals_loadConfig_unknownModeIsDevelopment(t *testing.T) {
	g := &Globals{Root: t.TempDir(), Mode: "staging"}
	cfg, _, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ModeDevelopment, cfg.Mode)
}

func TestServeCmd_apply(t *testing.T) {
	cfg := config.Default(config.ModeDevelopment)
	cmd := &ServeCmd{Listen: "127.0.0.1:9000", NoLiveReload: true, NoPoll: true}

	cmd.apply(&cfg)

	assert.Equal(t, "127.0.0.1:9000", cfg.DevServer.Listen)
	assert.False(t, cfg.DevServer.LiveReload)
	assert.False(t, cfg.Watch.Poll)
}

func TestRelPaths(t *testing.T) {
	root := t.TempDir()
	got := relPaths(root, []string{filepath.Join(root, "src", "index.js"), "/elsewhere/file.css"})
	assert.Equal(t, "src/index.js", got[0])
	assert.Len(t, got, 2)
}

func TestBuildCmd_Run(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "views", "index.html"), `<!doctype html>
<html><head><title>t</title></head><body><script src="../index.js"></script></body></html>`)
	writeFile(t, filepath.Join(root, "src", "index.js"), `console.log("hello");`)

	cmd := &BuildCmd{}
	err := cmd.Run(context.Background(), &Globals{Root: root, Mode: "production"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "dist", assets.ManifestFile))
	require.NoError(t, err)

	var manifest assets.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, config.ModeProduction, manifest.Mode)
	assert.NotEmpty(t, manifest.BuildID)

	_, err = os.Stat(filepath.Join(root, "dist", "index.html"))
	require.NoError(t, err)
}
