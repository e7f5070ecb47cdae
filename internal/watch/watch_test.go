package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) onChange(_ context.Context, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changed)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var paths []string
	for _, b := range r.batches {
		paths = append(paths, b...)
	}
	return paths
}

func TestWatcher_ignored(t *testing.T) {
	root := t.TempDir()
	w := New(Config{Root: root, Ignored: []string{"node_modules/**"}}, nil, zerolog.Nop())

	require.True(t, w.ignored(filepath.Join(root, "node_modules", "pkg", "index.js")))
	require.True(t, w.ignored(filepath.Join(root, "packages", "a", "node_modules", "x.js")))
	require.False(t, w.ignored(filepath.Join(root, "src", "index.html")))
}

func TestWatcher_watched(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "views", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "src", "css", "site.scss"), "body{}")
	writeFile(t, filepath.Join(root, "src", "js", "main.js"), "1")
	writeFile(t, filepath.Join(root, "node_modules", "x", "y.html"), "<p>")

	w := New(Config{
		Root:     root,
		Patterns: []string{"src/**/*.{scss,html}", "**/*.html"},
		Ignored:  []string{"node_modules/**"},
	}, nil, zerolog.Nop())
	w.SetFiles([]string{filepath.Join(root, "src", "js", "main.js")})

	require.Equal(t, []string{
		filepath.Join(root, "src", "css", "site.scss"),
		filepath.Join(root, "src", "js", "main.js"),
		filepath.Join(root, "src", "views", "index.html"),
	}, w.watched())
}

func TestWatcher_diff(t *testing.T) {
	root := t.TempDir()
	w := New(Config{Root: root, Patterns: []string{"src/**/*.html"}}, nil, zerolog.Nop())

	now := time.Now()
	html := filepath.Join(root, "src", "index.html")
	js := filepath.Join(root, "src", "main.js")
	gone := filepath.Join(root, "src", "gone.js")
	dropped := filepath.Join(root, "src", "dropped.js")
	writeFile(t, dropped, "still here")

	prev := map[string]fileState{
		js:      {size: 1, modTime: now},
		gone:    {size: 1, modTime: now},
		dropped: {size: 10, modTime: now},
	}
	next := map[string]fileState{
		js:   {size: 2, modTime: now},
		html: {size: 5, modTime: now},
	}

	require.ElementsMatch(t, []string{js, html, gone}, w.diff(prev, next))

	// a file added through SetFiles alone is not a change
	newInput := filepath.Join(root, "src", "new.js")
	require.Empty(t, w.diff(map[string]fileState{}, map[string]fileState{newInput: {size: 1, modTime: now}}))
}

func TestWatcher_Run_poll(t *testing.T) {
	root := t.TempDir()
	scss := filepath.Join(root, "src", "site.scss")
	writeFile(t, scss, "a{}")

	rec := &recorder{}
	w := New(Config{
		Root:     root,
		Patterns: []string{"src/**/*.{scss,html}"},
		Poll:     true,
		Interval: 10 * time.Millisecond,
		Debounce: 10 * time.Millisecond,
	}, rec.onChange, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// let the first snapshot happen before changing anything
	time.Sleep(50 * time.Millisecond)
	writeFile(t, scss, "a{color:red}")

	require.Eventually(t, func() bool {
		return len(rec.all()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Contains(t, rec.all(), scss)

	cancel()
	require.NoError(t, <-done)
}
