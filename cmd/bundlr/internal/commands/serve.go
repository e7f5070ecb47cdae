package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlr/internal/assets"
	"github.com/wolfeidau/bundlr/internal/config"
	"github.com/wolfeidau/bundlr/internal/devserver"
	"github.com/wolfeidau/bundlr/internal/logger"
	"github.com/wolfeidau/bundlr/internal/watch"
)

type ServeCmd struct {
	Listen       string `help:"dev server listen address, overrides devServer.listen" env:"BUNDLR_LISTEN"`
	NoLiveReload bool   `help:"disable live reload" default:"false"`
	NoPoll       bool   `help:"use file system notifications instead of polling" default:"false"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	cfg, root, err := globals.loadConfig()
	if err != nil {
		return err
	}
	c.apply(cfg)

	defer globals.startTelemetry(ctx, log)()

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode).
		Str("root", root).
		Msg("Starting dev server")

	srv := devserver.New(devserver.Config{
		Listen:      cfg.DevServer.Listen,
		Directory:   cfg.DevServer.Static.Directory,
		PublicPath:  cfg.DevServer.Static.PublicPath,
		CORSOrigins: cfg.DevServer.CORSOrigins,
		LiveReload:  cfg.DevServer.LiveReload,
	}, log)

	var opts []assets.Option
	if cfg.DevServer.LiveReload {
		opts = append(opts, assets.WithInjectedScript(devserver.ClientScript))
	}

	builder, err := assets.New(cfg, root, opts...)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	var watcher *watch.Watcher
	rebuild := func(ctx context.Context, changed []string) {
		log.Info().Strs("changed", relPaths(root, changed)).Msg("Rebuilding")

		res, err := builder.Build(ctx)
		if err != nil {
			// keep serving the previous output until the next change fixes it
			log.Error().Err(err).Msg("Rebuild failed")
			return
		}

		watcher.SetFiles(res.Inputs)
		srv.Reload()
	}

	watcher = watch.New(watch.Config{
		Root:     root,
		Patterns: cfg.DevServer.WatchFiles,
		Ignored:  cfg.Watch.Ignored,
		Poll:     cfg.Watch.Poll,
		Interval: cfg.Watch.Interval,
	}, rebuild, log)
	watcher.SetFiles(initialInputs(cfg))

	if res, err := builder.Build(ctx); err != nil {
		log.Error().Err(err).Msg("Initial build failed, waiting for changes")
	} else {
		watcher.SetFiles(res.Inputs)
	}

	return serve(ctx, log, srv, watcher)
}

func (c *ServeCmd) apply(cfg *config.Config) {
	if c.Listen != "" {
		cfg.DevServer.Listen = c.Listen
	}
	if c.NoLiveReload {
		cfg.DevServer.LiveReload = false
	}
	if c.NoPoll {
		cfg.Watch.Poll = false
	}
}

// serve runs the watcher and the dev server until ctx is cancelled or one
// of them fails.
func serve(ctx context.Context, log zerolog.Logger, srv *devserver.Server, watcher *watch.Watcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	err := srv.ListenAndServe(ctx)
	cancel()

	if werr := <-watchErr; werr != nil && ctx.Err() == nil {
		log.Error().Err(werr).Msg("Watcher stopped")
	}

	if err != nil {
		return fmt.Errorf("dev server failed: %w", err)
	}

	log.Info().Msg("Dev server stopped")
	return nil
}

// initialInputs watches the entry points even when the first build fails.
func initialInputs(cfg *config.Config) []string {
	inputs := make([]string, 0, len(cfg.Entries))
	for _, path := range cfg.Entries {
		inputs = append(inputs, path)
	}
	slices.Sort(inputs)
	return inputs
}

func relPaths(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		out = append(out, p)
	}
	return out
}
