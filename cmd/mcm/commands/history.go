package commands

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"50" help:"Maximum number of entries"`
	Runs  bool   `help:"List operations instead of transitions"`
	RunID string `name:"run" help:"Only transitions of this run ID"`
	Name  string `arg:"" optional:"" help:"Only this meta-package or meta-package.package" placeholder:"META_PACKAGE[.PACKAGE]"`
}

func (c *HistoryCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	if app.History == nil {
		return errors.ConfigError("the history journal is disabled").WithContext("setting", "history.enabled").Build()
	}
	p := g.Printer()
	if c.Runs {
		runs, err := app.History.Runs(ctx, c.Limit)
		if err != nil {
			return err
		}
		p.Runs(runs)
		return nil
	}
	meta, pkg, _ := strings.Cut(c.Name, ".")
	entries, err := app.History.Entries(ctx, history.Filter{Meta: meta, Package: pkg, RunID: c.RunID, Limit: c.Limit})
	if err != nil {
		return err
	}
	p.History(entries)
	return nil
}
