package history

import (
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndFilterEntries(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()
	at := time.Unix(1700000000, 0)

	for i, e := range []Entry{
		{RunID: "r1", Operation: "install", Meta: "dots", Package: "vim", From: "notloaded", To: "loaded", Mechanism: "tar"},
		{RunID: "r1", Operation: "install", Meta: "dots", Package: "vim", From: "loaded", To: "midinstall"},
		{RunID: "r2", Operation: "install", Meta: "work", Package: "ssh", From: "notloaded", To: "loaded"},
	} {
		e.At = at.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.AppendTransition(ctx, e))
	}

	all, err := s.Entries(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ssh", all[0].Package, "newest first")
	assert.Equal(t, "tar", all[2].Mechanism)
	assert.True(t, all[2].At.Equal(at))

	vim, err := s.Entries(ctx, Filter{Meta: "dots", Package: "vim", Limit: 1})
	require.NoError(t, err)
	require.Len(t, vim, 1)
	assert.Equal(t, "midinstall", vim[0].To)

	byRun, err := s.Entries(ctx, Filter{RunID: "r2"})
	require.NoError(t, err)
	assert.Len(t, byRun, 1)
}

func TestRuns(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()
	start := time.Unix(1700000000, 0)

	require.NoError(t, s.AppendRun(ctx, Run{RunID: "a", Operation: "load", Started: start, Finished: start.Add(time.Second)}))
	require.NoError(t, s.AppendRun(ctx, Run{RunID: "b", Operation: "install", Started: start.Add(time.Minute), Finished: start.Add(2 * time.Minute), Transitions: 3, Error: "boom"}))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
	assert.Equal(t, 3, runs[0].Transitions)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, time.Second, runs[1].Finished.Sub(runs[1].Started))
}

func TestOpenPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendTransition(t.Context(), Entry{RunID: "r", Operation: "remove", Meta: "m", Package: "p", From: "installed", To: "midremove", At: time.Now()}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	entries, err := s.Entries(t.Context(), Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecorderJournalsLifecycle(t *testing.T) {
	s := openMemory(t)
	r := NewRecorder(s)
	ctx := t.Context()
	now := time.Now()

	r.ObserveTransition(ctx, lifecycle.Transition{RunID: "x", Operation: lifecycle.OpInstall, Meta: "m", Package: "p",
		From: cache.Loaded, To: cache.MidInstall, At: now})
	r.ObserveRun(ctx, &lifecycle.Report{RunID: "x", Operation: lifecycle.OpInstall, Started: now, Finished: now,
		Transitions: make([]lifecycle.Transition, 1)}, stderrors.New("scm failed"))
	r.ObserveRun(ctx, &lifecycle.Report{RunID: "y", Operation: lifecycle.OpList, Started: now, Finished: now}, nil)

	entries, err := s.Entries(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "midinstall", entries[0].To)

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "list runs are not journaled")
	assert.Equal(t, "scm failed", runs[0].Error)
}

func TestRecorderSurvivesClosedStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.AppendTransition(t.Context(), Entry{RunID: "r", At: time.Now()})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryHistory, errors.GetCategory(err))

	assert.NotPanics(t, func() {
		NewRecorder(s).ObserveTransition(t.Context(), lifecycle.Transition{RunID: "r"})
	})
}
