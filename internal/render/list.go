package render

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
)

// List prints every meta-package followed by its packages and their status.
func (p *Printer) List(states []lifecycle.MetaState) {
	if len(states) == 0 {
		p.printf("%s\n", p.muted.Render("no meta-packages loaded"))
		return
	}
	width := 0
	for _, ms := range states {
		for _, ps := range ms.Packages {
			width = max(width, len(ps.Package.Name))
		}
	}
	for i, ms := range states {
		if i > 0 {
			p.printf("\n")
		}
		p.printf("%s\n", p.heading.Render(ms.Descriptor.Name))
		for _, ps := range ms.Packages {
			p.printf("  %s  %s\n", padRight(ps.Package.Name, width), p.packageStatus(ps))
		}
	}
}

func (p *Printer) packageStatus(ps lifecycle.PackageState) string {
	if ps.Err != nil {
		return p.errored.Render("corrupted") + " " + p.muted.Render(ps.Err.Error())
	}
	s := p.statusText(ps.Record.Status)
	if ps.Record.TargetDir != "" {
		s += " " + p.muted.Render("-> "+ps.Record.TargetDir)
	}
	return s
}

// Show prints the detail of one meta-package.
func (p *Printer) Show(ms *lifecycle.MetaState, source string) {
	d := ms.Descriptor
	p.printf("%s\n", p.heading.Render(d.Name))
	if summary := descriptor.Summary(d.Description); summary != "" {
		p.printf("  %s\n", summary)
	}
	if source != "" {
		p.printf("  source: %s\n", source)
	}
	for _, ps := range ms.Packages {
		pkg := ps.Package
		p.printf("\n  %s  %s\n", p.heading.Render(pkg.Name), p.packageStatus(ps))
		for _, m := range pkg.Mechanisms {
			p.printf("    %-5s %s\n", m.Kind, m.URI)
		}
		if len(pkg.Dependencies) > 0 {
			deps := make([]string, len(pkg.Dependencies))
			for i, dep := range pkg.Dependencies {
				deps[i] = fmt.Sprintf("%s[%s]", dep.Meta, dep.Pattern)
			}
			p.printf("    depends on %s\n", strings.Join(deps, ", "))
		}
		if len(pkg.Targets) > 0 {
			p.printf("    targets %s\n", strings.Join(pkg.Targets, ", "))
		}
		if len(ps.Record.Tags) > 0 {
			p.printf("    tags %s\n", strings.Join(ps.Record.Tags, ", "))
		}
	}
}
