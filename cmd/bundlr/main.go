package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundlr/cmd/bundlr/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build  commands.BuildCmd  `cmd:"" help:"Build the project once"`
		Serve  commands.ServeCmd  `cmd:"" help:"Build, watch and serve the project for development"`
		Inline commands.InlineCmd `cmd:"" help:"Show whether an SVG would be inlined and print its data URI"`

		Debug     bool   `help:"Enable debug mode."`
		Version   kong.VersionFlag
		Config    string `help:"path to the project config file" default:"bundlr.yaml" env:"BUNDLR_CONFIG"`
		Root      string `help:"project root directory" default:"." type:"existingdir" env:"BUNDLR_ROOT"`
		Mode      string `help:"build mode, only \"production\" enables production settings" default:"development" env:"NODE_ENV"`
		Telemetry bool   `help:"export traces and metrics over OTLP" default:"false" env:"BUNDLR_TELEMETRY"`
	}
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := kong.Parse(&cli,
		kong.Description("Bundle HTML entry points with their scripts, styles and SVG assets."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Version:   version,
		Config:    cli.Config,
		Root:      cli.Root,
		Mode:      cli.Mode,
		Telemetry: cli.Telemetry,
	})
	cmd.FatalIfErrorf(err)
}
