package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wolfeidau/bundlr/internal/assets"
	"github.com/wolfeidau/bundlr/internal/logger"
)

type InlineCmd struct {
	File  string `arg:"" help:"SVG file to evaluate" type:"existingfile"`
	Limit int    `help:"inline limit in bytes, overrides svg.inlineLimit" default:"-1"`
}

func (c *InlineCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Setup(globals.Debug)

	limit := c.Limit
	if limit < 0 {
		cfg, _, err := globals.loadConfig()
		if err != nil {
			return err
		}
		limit = cfg.SVG.InlineLimit
	}

	return c.run(os.Stdout, assets.NewPolicy(limit))
}

func (c *InlineCmd) run(w io.Writer, policy assets.Policy) error {
	content, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	name := filepath.Base(c.File)
	decision := policy.Decide(content, name)

	fmt.Fprintf(w, "file:     %s\n", name)
	fmt.Fprintf(w, "size:     %d\n", len(content))
	fmt.Fprintf(w, "limit:    %d\n", policy.Limit())
	fmt.Fprintf(w, "decision: %s\n", decision)

	if decision == assets.Inline {
		fmt.Fprintln(w, policy.Inline(content, name))
	}

	return nil
}
