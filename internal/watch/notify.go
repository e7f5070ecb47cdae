package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

func (w *Watcher) notify(ctx context.Context, changes chan<- string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	w.addDirs(watcher, dirs)

	// explicit files can move between builds, pick up their directories
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.addDirs(watcher, dirs)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if _, isFile := stat(event.Name); !isFile {
					w.addDirs(watcher, dirs)
					continue
				}
			}

			if w.isWatched(event.Name) {
				select {
				case changes <- event.Name:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watch error")
		}
	}
}

// addDirs watches every directory under the root that is not ignored, plus
// the directories of explicit files outside it.
func (w *Watcher) addDirs(watcher *fsnotify.Watcher, dirs map[string]struct{}) {
	add := func(dir string) {
		if _, ok := dirs[dir]; ok {
			return
		}
		if err := watcher.Add(dir); err != nil {
			w.logger.Debug().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			return
		}
		dirs[dir] = struct{}{}
	}

	_ = filepath.WalkDir(w.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.cfg.Root && (strings.HasPrefix(d.Name(), ".") || w.ignored(path) || w.ignored(filepath.Join(path, "x"))) {
			return filepath.SkipDir
		}
		add(path)
		return nil
	})

	w.mu.Lock()
	files := make([]string, 0, len(w.files))
	for p := range w.files {
		files = append(files, p)
	}
	w.mu.Unlock()

	for _, p := range files {
		add(filepath.Dir(p))
	}
}
