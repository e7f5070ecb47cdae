package watch

import (
	"context"
	"os"
	"time"
)

func (w *Watcher) poll(ctx context.Context, changes chan<- string) error {
	snapshot := w.snapshot()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			next := w.snapshot()
			for _, path := range w.diff(snapshot, next) {
				select {
				case changes <- path:
				case <-ctx.Done():
					return nil
				}
			}
			snapshot = next
		}
	}
}

func (w *Watcher) snapshot() map[string]fileState {
	paths := w.watched()

	states := make(map[string]fileState, len(paths))
	for _, p := range paths {
		if st, ok := stat(p); ok {
			states[p] = st
		}
	}

	return states
}

// diff compares two snapshots. A file that only joined the watch set through
// SetFiles is not a change, nor is one that left the set but still exists.
func (w *Watcher) diff(prev, next map[string]fileState) []string {
	var changed []string

	for path, st := range next {
		old, seen := prev[path]
		switch {
		case seen && !old.equal(st):
			changed = append(changed, path)
		case !seen && w.matchesPattern(path):
			changed = append(changed, path)
		}
	}

	for path := range prev {
		if _, ok := next[path]; ok {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			changed = append(changed, path)
		}
	}

	return changed
}
