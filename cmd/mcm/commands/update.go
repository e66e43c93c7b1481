package commands

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/mcm/internal/selection"
)

// UpdateCmd implements the 'update' command.
type UpdateCmd struct {
	Packages []string `arg:"" optional:"" name:"package" help:"meta-package re-fetches its descriptor; meta-package.pattern reinstalls matching packages; nothing updates everything" placeholder:"META_PACKAGE[.PACKAGE]"`
}

func (c *UpdateCmd) Run(ctx context.Context, g *Global) error {
	sels, err := selection.ParseAll(c.Packages, false)
	if err != nil {
		return err
	}
	app, err := g.App()
	if err != nil {
		return err
	}
	report, err := app.Engine.Update(ctx, sels)
	g.Printer().Transitions(report)
	return err
}

// ListCmd implements the 'list' command.
type ListCmd struct {
	JSON bool `help:"Print the listing as JSON"`
}

type listedPackage struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	TargetDir string   `json:"target_dir,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Hostname  string   `json:"hostname,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type listedMeta struct {
	Name     string          `json:"name"`
	Packages []listedPackage `json:"packages"`
}

func (c *ListCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	states, report, err := app.Engine.List(ctx)
	if err != nil {
		return err
	}
	p := g.Printer()
	if !c.JSON {
		p.List(states)
		p.Warnings(report.Warnings)
		return nil
	}
	out := make([]listedMeta, 0, len(states))
	for _, ms := range states {
		lm := listedMeta{Name: ms.Descriptor.Name, Packages: make([]listedPackage, 0, len(ms.Packages))}
		for _, ps := range ms.Packages {
			lp := listedPackage{Name: ps.Package.Name, Status: string(ps.Record.Status),
				TargetDir: ps.Record.TargetDir, Tags: ps.Record.Tags, Hostname: ps.Record.Hostname}
			if ps.Err != nil {
				lp.Status = "corrupted"
				lp.Error = ps.Err.Error()
			}
			lm.Packages = append(lm.Packages, lp)
		}
		out = append(out, lm)
	}
	p.Warnings(report.Warnings)
	enc := json.NewEncoder(g.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ShowCmd implements the 'show' command.
type ShowCmd struct {
	Name string `arg:"" help:"Meta-package name" placeholder:"META_PACKAGE_NAME"`
}

func (c *ShowCmd) Run(ctx context.Context, g *Global) error {
	app, err := g.App()
	if err != nil {
		return err
	}
	ms, report, err := app.Engine.Show(ctx, c.Name)
	if err != nil {
		return err
	}
	source, _ := app.Engine.Store().SourceURI(ms.Descriptor)
	p := g.Printer()
	p.Show(ms, source)
	p.Warnings(report.Warnings)
	return nil
}

