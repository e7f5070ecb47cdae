package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/bundlr/internal/assets"
	"github.com/wolfeidau/bundlr/internal/logger"
)

type BuildCmd struct {
	OutputDir string `help:"output directory, overrides output.dir" type:"path" env:"BUNDLR_OUTPUT_DIR"`
	NoClean   bool   `help:"keep existing files in the output directory" default:"false"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, root, err := globals.loadConfig()
	if err != nil {
		return err
	}
	if c.OutputDir != "" {
		cfg.Output.Dir = c.OutputDir
	}
	if c.NoClean {
		cfg.Output.Clean = false
	}

	defer globals.startTelemetry(ctx, log)()

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode).
		Str("root", root).
		Str("output", cfg.Output.Dir).
		Msg("Starting build")

	builder, err := assets.New(cfg, root)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	return nil
}
