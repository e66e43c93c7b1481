// Package watch keeps loaded meta-packages current.
//
// A Watcher runs a full update on a fixed interval and, between runs, a
// targeted update whenever a descriptor loaded from a local file changes on
// disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// Updater runs lifecycle updates.
type Updater interface {
	Update(ctx context.Context, sels []selection.Selection) (*lifecycle.Report, error)
}

// ReportFunc receives the outcome of every update the watcher runs.
type ReportFunc func(r *lifecycle.Report, err error)

// Options configures a Watcher.
type Options struct {
	Interval time.Duration // zero disables the periodic update
	Debounce time.Duration
	OnReport ReportFunc
}

// Watcher schedules updates.
type Watcher struct {
	updater Updater
	store   *descriptor.Store
	opts    Options

	mu      sync.Mutex // serializes updates
	sources map[string]string
	pending map[string]*time.Timer
	pmu     sync.Mutex
}

// New returns a Watcher for the descriptors in store.
func New(updater Updater, store *descriptor.Store, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	return &Watcher{
		updater: updater,
		store:   store,
		opts:    opts,
		pending: map[string]*time.Timer{},
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fw.Close() }()

	if err := w.refreshSources(fw); err != nil {
		return err
	}

	var sched gocron.Scheduler
	if w.opts.Interval > 0 {
		sched, err = gocron.NewScheduler()
		if err != nil {
			return errors.InternalError("failed to create scheduler").WithCause(err).Build()
		}
		_, err = sched.NewJob(
			gocron.DurationJob(w.opts.Interval),
			gocron.NewTask(func() { w.update(ctx, nil, fw) }),
			gocron.WithName("update-all"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return errors.InternalError("failed to schedule periodic update").WithCause(err).Build()
		}
		sched.Start()
		slog.Info("Scheduled periodic update", logfields.Duration(w.opts.Interval))
	}

	w.watchLoop(ctx, fw)

	w.pmu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pmu.Unlock()
	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}
	// Wait for a running update to finish.
	w.mu.Lock()
	defer w.mu.Unlock()
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if meta, ok := w.metaFor(ev.Name); ok {
				slog.Debug("Descriptor source changed", logfields.Meta(meta), logfields.Path(ev.Name))
				w.schedule(ctx, meta, fw)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) metaFor(path string) (string, bool) {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	meta, ok := w.sources[filepath.Clean(path)]
	return meta, ok
}

// schedule debounces changes per meta-package.
func (w *Watcher) schedule(ctx context.Context, meta string, fw *fsnotify.Watcher) {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	if t, ok := w.pending[meta]; ok {
		t.Stop()
	}
	w.pending[meta] = time.AfterFunc(w.opts.Debounce, func() {
		w.pmu.Lock()
		delete(w.pending, meta)
		w.pmu.Unlock()
		if ctx.Err() != nil {
			return
		}
		// Re-fetch the descriptor, then reinstall what is installed under it.
		w.update(ctx, []selection.Selection{selection.MetaOnly(meta)}, fw)
		w.update(ctx, []selection.Selection{selection.Packages(meta, selection.All)}, fw)
	})
}

func (w *Watcher) update(ctx context.Context, sels []selection.Selection, fw *fsnotify.Watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	report, err := w.updater.Update(ctx, sels)
	if err != nil {
		slog.Error("Update failed", logfields.Error(err))
	}
	if w.opts.OnReport != nil {
		w.opts.OnReport(report, err)
	}
	if err := w.refreshSources(fw); err != nil {
		slog.Warn("Failed to refresh watched sources", logfields.Error(err))
	}
}

// refreshSources watches the directory of every locally sourced descriptor.
func (w *Watcher) refreshSources(fw *fsnotify.Watcher) error {
	all, _, err := w.store.List()
	if err != nil {
		return err
	}
	sources := map[string]string{}
	for _, d := range all {
		uri, err := w.store.SourceURI(d)
		if err != nil {
			continue
		}
		path, ok := fetch.LocalPath(uri)
		if !ok {
			continue
		}
		sources[filepath.Clean(path)] = d.Name
	}

	watched := map[string]bool{}
	for _, dir := range fw.WatchList() {
		watched[dir] = true
	}
	for path := range sources {
		dir := filepath.Dir(path)
		if watched[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			slog.Warn("Cannot watch descriptor source", logfields.Path(dir), logfields.Error(err))
			continue
		}
		watched[dir] = true
		slog.Info("Watching descriptor sources", logfields.Path(dir))
	}

	w.pmu.Lock()
	w.sources = sources
	w.pmu.Unlock()
	return nil
}

// Sources returns the watched source paths keyed to their meta-package.
func (w *Watcher) Sources() map[string]string {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	out := make(map[string]string, len(w.sources))
	for k, v := range w.sources {
		out[k] = v
	}
	return out
}
