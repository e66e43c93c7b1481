package render

import "git.home.luguber.info/inful/mcm/internal/cache"

// Problems prints the integrity violations found by a cache scan.
func (p *Printer) Problems(problems []cache.Problem) {
	if len(problems) == 0 {
		p.printf("%s\n", p.status[cache.Installed].Render("cache is consistent"))
		return
	}
	for _, pr := range problems {
		name := pr.Package
		if pr.Meta != "" {
			name = pr.Meta + "." + pr.Package
		}
		if name == "" {
			name = "cache"
		}
		p.printf("%s %s: %s\n", p.errored.Render(string(pr.Kind)), name, pr.Detail)
	}
}
