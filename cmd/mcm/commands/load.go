package commands

import "context"

// LoadCmd implements the 'load' command.
type LoadCmd struct {
	Replace bool     `short:"r" help:"Replace meta-packages that are already loaded"`
	URIs    []string `arg:"" name:"uri" help:"Descriptor location (path or URL)" placeholder:"META_PACKAGE_URI"`
}

func (c *LoadCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	report, err := app.Engine.Load(ctx, c.URIs, !c.Replace)
	g.Printer().Transitions(report)
	return err
}

// UnloadCmd implements the 'unload' command.
type UnloadCmd struct {
	Names []string `arg:"" name:"name" help:"Meta-package name" placeholder:"META_PACKAGE_NAME"`
}

func (c *UnloadCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	report, err := app.Engine.Unload(ctx, c.Names)
	g.Printer().Transitions(report)
	return err
}
