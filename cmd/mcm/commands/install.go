package commands

import (
	"context"

	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// InstallCmd implements the 'install' command.
type InstallCmd struct {
	LoadOnly    bool     `name:"load-only" short:"l" help:"Only acquire the packages, do not install them"`
	IfInstalled string   `name:"if-installed" default:"exit" enum:"exit,skip,reinstall" help:"What to do with packages that are already installed (${enum})"`
	Packages    []string `arg:"" name:"package" help:"meta-package[.pattern]; a bare meta-package selects all of its packages" placeholder:"META_PACKAGE.PACKAGE"`
}

func (c *InstallCmd) Run(ctx context.Context, g *Global) error {
	sels, err := selection.ParseAll(c.Packages, false)
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	report, err := app.Engine.Install(ctx, sels, lifecycle.InstallOptions{
		LoadOnly:    c.LoadOnly,
		IfInstalled: ifInstalled(c.IfInstalled),
	})
	g.Printer().Transitions(report)
	return err
}

func ifInstalled(raw string) lifecycle.IfInstalled {
	switch raw {
	case "skip":
		return lifecycle.IfInstalledSkip
	case "reinstall":
		return lifecycle.IfInstalledReinstall
	default:
		return lifecycle.IfInstalledExit
	}
}

// RemoveCmd implements the 'remove' command.
type RemoveCmd struct {
	UninstallOnly bool     `name:"uninstall-only" short:"u" help:"Keep the acquired content; only uninstall"`
	SkipAbsent    bool     `name:"skip-absent" help:"Skip selected packages that are not installed instead of failing"`
	Packages      []string `arg:"" name:"package" help:"meta-package[.pattern]" placeholder:"META_PACKAGE.PACKAGE"`
}

func (c *RemoveCmd) Run(ctx context.Context, g *Global) error {
	sels, err := selection.ParseAll(c.Packages, false)
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	report, err := app.Engine.Remove(ctx, sels, lifecycle.RemoveOptions{
		UninstallOnly:      c.UninstallOnly,
		ExitIfNotInstalled: !c.SkipAbsent,
	})
	g.Printer().Transitions(report)
	return err
}
