package commands

import (
	"context"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// RepairCmd implements the 'repair' command. Without flags it only reports
// problems.
type RepairCmd struct {
	As       string   `help:"Force the selected packages to this status" enum:",notloaded,loaded,installed" default:""`
	Rebuild  bool     `help:"Discard the cache and rebuild it from the package directories"`
	Packages []string `arg:"" optional:"" name:"package" help:"meta-package.pattern to force" placeholder:"META_PACKAGE.PACKAGE"`
}

func (c *RepairCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	p := g.Printer()
	switch {
	case c.Rebuild:
		if c.As != "" || len(c.Packages) > 0 {
			return errors.ValidationError("--rebuild takes no packages").Build()
		}
		report, err := app.Engine.Rebuild(ctx)
		p.Transitions(report)
		return err
	case c.As != "":
		if len(c.Packages) == 0 {
			return errors.ValidationError("--as needs at least one package").Build()
		}
		sels, err := selection.ParseAll(c.Packages, true)
		if err != nil {
			return err
		}
		report, err := app.Engine.ForceStatus(ctx, sels, cache.Status(c.As))
		p.Transitions(report)
		return err
	default:
		if len(c.Packages) > 0 {
			return errors.ValidationError("packages are only accepted with --as").Build()
		}
		problems, report, err := app.Engine.Check(ctx)
		if err != nil {
			return err
		}
		p.Problems(problems)
		p.Warnings(report.Warnings)
		if len(problems) > 0 {
			return errors.NewError(errors.CategoryCache, "the state cache needs repair").
				UserAction().WithContext("problems", len(problems)).Build()
		}
		return nil
	}
}
