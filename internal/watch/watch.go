// Package watch triggers rebuilds when project files change. It supports a
// polling backend, which works on network and container mounts, and an
// fsnotify backend for local file systems.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

const defaultDebounce = 200 * time.Millisecond

// Config controls what is watched and how.
type Config struct {
	// Root directory globs are relative to.
	Root string
	// Globs of additional files to watch, e.g. "src/**/*.{scss,html}".
	Patterns []string
	// Globs of files never watched, e.g. "node_modules/**".
	Ignored []string
	// Poll stats every watched file each Interval instead of using fsnotify.
	Poll     bool
	Interval time.Duration
	// Debounce groups changes arriving close together into one callback.
	Debounce time.Duration
}

// ChangeFunc receives the sorted, de-duplicated paths that changed.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher observes a set of files and calls back after they change.
type Watcher struct {
	cfg      Config
	onChange ChangeFunc
	logger   zerolog.Logger

	mu    sync.Mutex
	files map[string]struct{}
}

func New(cfg Config, onChange ChangeFunc, logger zerolog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	return &Watcher{
		cfg:      cfg,
		onChange: onChange,
		logger:   logger,
		files:    make(map[string]struct{}),
	}
}

// SetFiles replaces the explicitly watched files, typically the inputs of
// the last build.
func (w *Watcher) SetFiles(paths []string) {
	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = struct{}{}
		}
	}

	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	changes := make(chan string, 64)

	var (
		wg  sync.WaitGroup
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.debounce(ctx, changes)
	}()

	if w.cfg.Poll {
		w.logger.Info().Dur("interval", w.cfg.Interval).Msg("Watching files by polling")
		err = w.poll(ctx, changes)
	} else {
		w.logger.Info().Msg("Watching files with fsnotify")
		err = w.notify(ctx, changes)
	}

	wg.Wait()
	return err
}

func (w *Watcher) debounce(ctx context.Context, changes <-chan string) {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case path := <-changes:
			pending[path] = struct{}{}
			timer.Reset(w.cfg.Debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}

			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.logger.Debug().Strs("changed", changed).Msg("Files changed")
			w.onChange(ctx, changed)
		}
	}
}

// watched returns the explicit files plus the pattern matches, minus ignored paths.
func (w *Watcher) watched() []string {
	w.mu.Lock()
	set := make(map[string]struct{}, len(w.files))
	for p := range w.files {
		set[p] = struct{}{}
	}
	w.mu.Unlock()

	fsys := os.DirFS(w.cfg.Root)
	for _, pattern := range w.cfg.Patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			w.logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to expand watch pattern")
			continue
		}
		for _, m := range matches {
			set[filepath.Join(w.cfg.Root, filepath.FromSlash(m))] = struct{}{}
		}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		if !w.ignored(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	return paths
}

// ignored reports whether an absolute path matches one of the ignore globs.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.cfg.Ignored {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// "node_modules/**" should also hide nested dependency directories
		if ok, _ := doublestar.Match("**/"+pattern, rel); ok {
			return true
		}
	}

	return false
}

// matchesPattern reports whether an absolute path matches one of the watch globs.
func (w *Watcher) matchesPattern(path string) bool {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.cfg.Patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

// isWatched reports whether a change to path should trigger a rebuild.
func (w *Watcher) isWatched(path string) bool {
	if w.ignored(path) {
		return false
	}

	w.mu.Lock()
	_, explicit := w.files[path]
	w.mu.Unlock()

	return explicit || w.matchesPattern(path)
}

type fileState struct {
	size    int64
	modTime time.Time
}

func (s fileState) equal(other fileState) bool {
	return s.size == other.size && s.modTime.Equal(other.modTime)
}

func stat(path string) (fileState, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileState{}, false
	}
	return fileState{size: info.Size(), modTime: info.ModTime()}, true
}
