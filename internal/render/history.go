package render

import (
	"time"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/history"
)

const timeLayout = "2006-01-02 15:04:05"

// History prints journaled transitions, newest first.
func (p *Printer) History(entries []history.Entry) {
	if len(entries) == 0 {
		p.printf("%s\n", p.muted.Render("no history recorded"))
		return
	}
	for _, e := range entries {
		line := p.muted.Render(e.At.Local().Format(timeLayout)) + "  " +
			padRight(e.Operation, 7) + "  " + e.Meta + "." + e.Package + ": " +
			p.statusText(cache.Status(e.From)) + " -> " + p.statusText(cache.Status(e.To))
		if e.Mechanism != "" {
			line += p.muted.Render(" (" + e.Mechanism + ")")
		}
		p.printf("%s\n", line)
	}
}

// Runs prints journaled operations, newest first.
func (p *Printer) Runs(runs []history.Run) {
	for _, r := range runs {
		outcome := p.status[cache.Installed].Render("ok")
		if r.Error != "" {
			outcome = p.errored.Render("failed") + " " + r.Error
		}
		p.printf("%s  %s  %-7s  %d transitions  %s  %s\n",
			p.muted.Render(r.Started.Local().Format(timeLayout)), r.RunID[:min(8, len(r.RunID))],
			r.Operation, r.Transitions, r.Finished.Sub(r.Started).Round(time.Millisecond), outcome)
	}
}
