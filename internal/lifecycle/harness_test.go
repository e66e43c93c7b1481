package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

type fakeBridge struct {
	mu       sync.Mutex
	calls    []string
	requests []installer.Request
	fail     map[string]int // "install m.p" -> exit code
}

func (b *fakeBridge) Install(_ context.Context, req installer.Request) error {
	return b.do(installer.ActionInstall, req)
}

func (b *fakeBridge) Remove(_ context.Context, req installer.Request) error {
	return b.do(installer.ActionRemove, req)
}

func (b *fakeBridge) do(action installer.Action, req installer.Request) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := fmt.Sprintf("%s %s.%s", action, req.Meta, req.Package)
	b.calls = append(b.calls, call)
	b.requests = append(b.requests, req)
	if code, ok := b.fail[call]; ok {
		return &installer.ToolError{Action: action, Package: req.Meta + "." + req.Package, ExitCode: code}
	}
	return nil
}

type fakeAcquirer struct {
	calls []string
	err   error
}

func (a *fakeAcquirer) Acquire(_ context.Context, name, dir string, mechanisms []descriptor.Mechanism) (descriptor.Mechanism, error) {
	a.calls = append(a.calls, name)
	if a.err != nil {
		return descriptor.Mechanism{}, a.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return descriptor.Mechanism{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "content"), []byte(name), 0o644); err != nil {
		return descriptor.Mechanism{}, err
	}
	if len(mechanisms) == 0 {
		return descriptor.Mechanism{Kind: descriptor.MechanismTar}, nil
	}
	return mechanisms[0], nil
}

type recordingObserver struct {
	transitions []Transition
	runs        []Operation
	errs        []error
}

func (o *recordingObserver) ObserveTransition(_ context.Context, t Transition) {
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) ObserveRun(_ context.Context, r *Report, err error) {
	o.runs = append(o.runs, r.Operation)
	o.errs = append(o.errs, err)
}

type harness struct {
	engine   *Engine
	store    *descriptor.Store
	cache    *cache.Cache
	bridge   *fakeBridge
	acquirer *fakeAcquirer
	sources  string
	target   string
	settings Settings
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	data := t.TempDir()
	store, err := descriptor.NewStore(filepath.Join(data, "configs"), fetch.New(0))
	require.NoError(t, err)
	c, err := cache.Open(t.TempDir(), filepath.Join(data, "packages"))
	require.NoError(t, err)

	h := &harness{
		store:    store,
		cache:    c,
		bridge:   &fakeBridge{fail: map[string]int{}},
		acquirer: &fakeAcquirer{},
		sources:  t.TempDir(),
		target:   t.TempDir(),
	}
	h.settings = Settings{TargetDir: h.target, Hostname: "host1", Tags: []string{"work"}}
	h.engine = New(store, c, h.acquirer, h.bridge, h.settings, opts...)
	return h
}

// doc renders a descriptor whose packages each declare one tar mechanism.
// Extra TOML for a package can follow its name after a newline.
func doc(name string, packages ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name = %q\n", name)
	for _, p := range packages {
		pkg, extra, _ := strings.Cut(p, "\n")
		fmt.Fprintf(&b, "\n[packages.%s]\n", pkg)
		if extra != "" {
			b.WriteString(extra + "\n")
		}
		fmt.Fprintf(&b, "[packages.%s.installation-mechanisms.tar]\nuri = \"file:///srv/%s.tar\"\n", pkg, pkg)
	}
	return b.String()
}

func (h *harness) writeSource(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(h.sources, name+".toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (h *harness) load(t *testing.T, name string, packages ...string) {
	t.Helper()
	path := h.writeSource(t, name, doc(name, packages...))
	_, err := h.engine.Load(t.Context(), []string{path}, true)
	require.NoError(t, err)
}

func (h *harness) status(t *testing.T, meta, pkg string) cache.Status {
	t.Helper()
	rec, err := h.cache.Get(meta, pkg)
	require.NoError(t, err)
	return rec.Status
}

func (h *harness) resetCalls() {
	h.bridge.calls = nil
	h.bridge.requests = nil
	h.acquirer.calls = nil
}

func sels(t *testing.T, tokens ...string) []selection.Selection {
	t.Helper()
	out, err := selection.ParseAll(tokens, false)
	require.NoError(t, err)
	return out
}

// markInProgress fakes an interrupted run for meta.pkg.
func (h *harness) markInProgress(t *testing.T, meta, pkg string, status cache.Status) {
	t.Helper()
	dir := h.cache.PackageDir(meta, pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, h.cache.Put(meta, pkg, cache.Record{
		Status:      status,
		PackageDir:  dir,
		PackagesDir: h.cache.PackagesDir(),
		TargetDir:   h.target,
		Tags:        []string{},
	}))
}
