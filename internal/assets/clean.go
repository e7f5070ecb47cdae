package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const cleanMaxTries = 5

// cleanOutput removes the contents of dir, keeping dir itself so a running
// dev server keeps serving it. Removal is retried because editors and file
// servers can briefly hold files open.
func cleanOutput(ctx context.Context, dir, root string) error {
	if err := checkCleanable(dir, root); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		var errs []error
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, err)
			}
		}
		return struct{}{}, errors.Join(errs...)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(cleanMaxTries))
	if err != nil {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}

	log.Debug().Str("dir", dir).Int("entries", len(entries)).Msg("Cleaned output directory")
	return nil
}

// checkCleanable refuses to clean the project root or any of its parents.
func checkCleanable(dir, root string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}

	if dir == root || strings.HasPrefix(root, dir+string(filepath.Separator)) || dir == filepath.Dir(dir) {
		return fmt.Errorf("refusing to clean %s: it contains the project root", dir)
	}
	return nil
}
