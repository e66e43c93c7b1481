// Package render formats lifecycle results for the terminal.
//
// Styles are bound to the output writer, so colors only appear when the
// writer is a terminal that supports them.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
)

// Printer writes styled output to w.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	muted   lipgloss.Style
	warn    lipgloss.Style
	status  map[cache.Status]lipgloss.Style
	errored lipgloss.Style
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		errored: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		status: map[cache.Status]lipgloss.Style{
			cache.NotLoaded:  r.NewStyle().Faint(true),
			cache.Loaded:     r.NewStyle().Foreground(lipgloss.Color("6")),
			cache.Installed:  r.NewStyle().Foreground(lipgloss.Color("2")),
			cache.MidInstall: r.NewStyle().Foreground(lipgloss.Color("1")),
			cache.MidRemove:  r.NewStyle().Foreground(lipgloss.Color("1")),
		},
	}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) statusText(s cache.Status) string {
	if st, ok := p.status[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

// padRight pads the rendered cell to width visible columns.
func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Warnings prints the warnings an operation tolerated.
func (p *Printer) Warnings(ws []lifecycle.Warning) {
	for _, w := range ws {
		p.printf("%s %s\n", p.warn.Render("warning:"), w.String())
	}
}

// Transitions prints one line per status change of a report.
func (p *Printer) Transitions(r *lifecycle.Report) {
	if r == nil {
		return
	}
	for _, t := range r.Transitions {
		line := fmt.Sprintf("%s.%s: %s -> %s", t.Meta, t.Package, p.statusText(t.From), p.statusText(t.To))
		if t.Mechanism != "" {
			line += p.muted.Render(" (" + t.Mechanism + ")")
		}
		p.printf("%s\n", line)
	}
	for _, name := range r.Loaded {
		p.printf("loaded %s\n", name)
	}
	for _, name := range r.Unloaded {
		p.printf("unloaded %s\n", name)
	}
	p.Warnings(r.Warnings)
}
