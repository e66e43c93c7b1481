package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mcm/cmd/mcm/commands"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli commands.CLI
	global := commands.NewGlobal(os.Stdout, os.Stderr)
	parser := kong.Must(&cli,
		kong.Name("mcm"),
		kong.Description("Meta configuration manager for scm."),
		kong.UsageOnError(),
		kong.Vars{
			"version":        version.String(),
			"default_config": commands.DefaultConfigPath(),
		},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		var categorized errors.Categorized
		if !stderrors.As(err, &categorized) {
			// Usage errors keep kong's help output.
			parser.FatalIfErrorf(err)
		}
	} else {
		err = kctx.Run(global, &cli)
		global.Close()
	}
	if err != nil {
		cancel()
		errors.NewCLIErrorAdapter(cli.Verbose > 1, slog.Default()).HandleError(err)
	}
}
