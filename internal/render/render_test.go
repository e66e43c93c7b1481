package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/history"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
)

func states() []lifecycle.MetaState {
	return []lifecycle.MetaState{{
		Descriptor: &descriptor.Descriptor{
			Name:        "dots",
			Description: "Personal *dotfiles* for\nevery machine.\n\nSecond paragraph.",
			Packages: []descriptor.Package{
				{Name: "vim", Mechanisms: []descriptor.Mechanism{{Kind: descriptor.MechanismGit, URI: "https://example.com/vim.git"}}},
				{Name: "zsh", Dependencies: []descriptor.Dependency{{Meta: "dots", Pattern: "^vim$"}}},
			},
		},
		Packages: []lifecycle.PackageState{
			{Package: descriptor.Package{Name: "vim", Mechanisms: []descriptor.Mechanism{{Kind: descriptor.MechanismGit, URI: "https://example.com/vim.git"}}},
				Record: cache.Record{Status: cache.Installed, TargetDir: "/home/me", Tags: []string{"work"}}},
			{Package: descriptor.Package{Name: "zsh", Dependencies: []descriptor.Dependency{{Meta: "dots", Pattern: "^vim$"}}},
				Err: &cache.CorruptedError{Meta: "dots", Package: "zsh", Reason: "status is midinstall"}},
		},
	}}
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).List(states())

	out := buf.String()
	assert.Contains(t, out, "dots\n")
	assert.Contains(t, out, "  vim  installed -> /home/me\n")
	assert.Contains(t, out, "  zsh  corrupted")
}

func TestListEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).List(nil)
	assert.Equal(t, "no meta-packages loaded\n", buf.String())
}

func TestShow(t *testing.T) {
	var buf bytes.Buffer
	ms := states()[0]
	New(&buf).Show(&ms, "file:///srv/dots.toml")

	out := buf.String()
	assert.Contains(t, out, "  Personal dotfiles for every machine.\n")
	assert.NotContains(t, out, "Second paragraph")
	assert.Contains(t, out, "source: file:///srv/dots.toml")
	assert.Contains(t, out, "git   https://example.com/vim.git")
	assert.Contains(t, out, "depends on dots[^vim$]")
	assert.Contains(t, out, "tags work")
}

func TestTransitionsAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Transitions(&lifecycle.Report{
		Transitions: []lifecycle.Transition{
			{Meta: "dots", Package: "vim", From: cache.NotLoaded, To: cache.Loaded, Mechanism: "git"},
			{Meta: "dots", Package: "vim", From: cache.Loaded, To: cache.MidInstall},
		},
		Loaded:   []string{"dots"},
		Warnings: []lifecycle.Warning{{Meta: "gone", Message: "meta-package is not loaded"}},
	})

	assert.Equal(t, "dots.vim: notloaded -> loaded (git)\n"+
		"dots.vim: loaded -> midinstall\n"+
		"loaded dots\n"+
		"warning: gone: meta-package is not loaded\n", buf.String())
}

func TestHistoryAndRuns(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	p := New(&buf)
	p.History([]history.Entry{{Operation: "install", Meta: "dots", Package: "vim", From: "loaded", To: "installed", At: at}})
	p.Runs([]history.Run{{RunID: "0123456789abcdef", Operation: "remove", Started: at, Finished: at.Add(time.Second), Transitions: 2, Error: "boom"}})

	out := buf.String()
	assert.Contains(t, out, "2026-03-01 12:00:00  install  dots.vim: loaded -> installed")
	assert.Contains(t, out, "01234567  remove   2 transitions  1s  failed boom")
}

func TestProblems(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Problems(nil)
	p.Problems([]cache.Problem{
		{Kind: cache.ProblemUnreadable, Detail: "bad json"},
		{Meta: "dots", Package: "vim", Kind: cache.ProblemInProgress, Detail: "interrupted while midinstall"},
	})
	assert.Equal(t, "cache is consistent\n"+
		"unreadable cache: bad json\n"+
		"in_progress dots.vim: interrupted while midinstall\n", buf.String())
}
