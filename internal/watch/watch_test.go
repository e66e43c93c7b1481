package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeUpdater) Update(_ context.Context, sels []selection.Selection) (*lifecycle.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := "all"
	if len(sels) > 0 {
		call = sels[0].String()
	}
	f.calls = append(f.calls, call)
	return &lifecycle.Report{Operation: lifecycle.OpUpdate}, nil
}

func (f *fakeUpdater) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newStore(t *testing.T) (*descriptor.Store, string) {
	t.Helper()
	store, err := descriptor.NewStore(filepath.Join(t.TempDir(), "configs"), fetch.New(0))
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "dots.toml")
	require.NoError(t, os.WriteFile(src, []byte("name = \"dots\"\n[packages.a]\n"), 0o600))
	_, err = store.Load(t.Context(), src, descriptor.SkipIfLoaded)
	require.NoError(t, err)
	return store, src
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestSourceChangeTriggersTargetedUpdate(t *testing.T) {
	store, src := newStore(t)
	up := &fakeUpdater{}
	var reports int
	var rmu sync.Mutex
	w := New(up, store, Options{Debounce: 20 * time.Millisecond, OnReport: func(*lifecycle.Report, error) {
		rmu.Lock()
		reports++
		rmu.Unlock()
	}})
	start(t, w)

	require.Eventually(t, func() bool { return len(w.Sources()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "dots", w.Sources()[src])

	require.NoError(t, os.WriteFile(src, []byte("name = \"dots\"\n[packages.a]\n[packages.b]\n"), 0o600))

	require.Eventually(t, func() bool { return len(up.snapshot()) >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"dots", "dots..*"}, up.snapshot()[:2])
	rmu.Lock()
	assert.GreaterOrEqual(t, reports, 2)
	rmu.Unlock()
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	store, src := newStore(t)
	up := &fakeUpdater{}
	w := New(up, store, Options{Debounce: 10 * time.Millisecond})
	start(t, w)
	require.Eventually(t, func() bool { return len(w.Sources()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(src), "other.toml"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, up.snapshot())
}

func TestPeriodicUpdate(t *testing.T) {
	store, _ := newStore(t)
	up := &fakeUpdater{}
	w := New(up, store, Options{Interval: 50 * time.Millisecond})
	start(t, w)

	require.Eventually(t, func() bool { return len(up.snapshot()) >= 2 }, 5*time.Second, 10*time.Millisecond)
	for _, c := range up.snapshot() {
		assert.Equal(t, "all", c)
	}
}
