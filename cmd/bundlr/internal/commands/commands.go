package commands

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlr/internal/config"
	"github.com/wolfeidau/bundlr/internal/telemetry"
)

const serviceName = "bundlr"

type Globals struct {
	Debug     bool
	Version   string
	Config    string
	Root      string
	Mode      string
	Telemetry bool
}

// loadConfig reads the project config, resolving a relative config path
// against the project root.
func (g *Globals) loadConfig() (*config.Config, string, error) {
	root := g.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, "", err
	}

	path := g.Config
	if path == "" {
		path = config.DefaultFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	cfg, err := config.Load(path, root, config.NormalizeMode(g.Mode))
	if err != nil {
		return nil, "", err
	}

	return cfg, root, nil
}

// startTelemetry installs the OTLP exporters when enabled. The returned
// function flushes them and is always safe to call.
func (g *Globals) startTelemetry(ctx context.Context, log zerolog.Logger) func() {
	if !g.Telemetry {
		return func() {}
	}

	log.Info().Msg("Telemetry is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, serviceName, g.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
