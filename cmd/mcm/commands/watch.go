package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mcm/internal/config"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Interval string `help:"Override watch.interval (Go duration, 0 disables the periodic update)"`
}

func (c *WatchCmd) Run(ctx context.Context, g *Global) error {
	if c.Interval != "" {
		g.Config.Watch.Interval = c.Interval
		if err := config.Validate(g.Config); err != nil {
			return err
		}
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	p := g.Printer()
	w := watch.New(app.Engine, app.Engine.Store(), watch.Options{
		Interval: g.Config.WatchInterval(),
		Debounce: g.Config.WatchDebounce(),
		OnReport: func(r *lifecycle.Report, err error) {
			p.Transitions(r)
			if err != nil {
				slog.Error("Update failed", logfields.Error(err))
			}
		},
	})
	slog.Info("Watching meta-packages", slog.String("interval", g.Config.Watch.Interval))
	return w.Run(ctx)
}
