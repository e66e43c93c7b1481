// Package lifecycle moves packages between load, install and remove states
// while keeping the state cache consistent with what is on disk.
//
// Every status change is persisted immediately: an in-progress status is
// written before the installer runs and the next stable status only after it
// succeeds, so an interrupted run is visible to the next one.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/observability"
)

// Acquirer materializes package content into a directory.
type Acquirer interface {
	Acquire(ctx context.Context, name, dir string, mechanisms []descriptor.Mechanism) (descriptor.Mechanism, error)
}

// Settings are the install attributes applied to new installs.
type Settings struct {
	TargetDir string // used when a package lists no targets
	Hostname  string // optional scm hostname override
	Tags      []string
}

// Engine runs lifecycle operations.
type Engine struct {
	store     *descriptor.Store
	cache     *cache.Cache
	acquirer  Acquirer
	bridge    installer.Bridge
	settings  Settings
	observers []Observer
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithObservers adds transition observers.
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) {
		for _, o := range obs {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// New wires an engine.
func New(store *descriptor.Store, c *cache.Cache, acq Acquirer, bridge installer.Bridge, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		cache:    c,
		acquirer: acq,
		bridge:   bridge,
		settings: settings,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store exposes the descriptor store.
func (e *Engine) Store() *descriptor.Store { return e.store }

// Cache exposes the state cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// run holds the state of one operation.
type run struct {
	op     Operation
	report *Report
	// resolving is the set of meta.pkg currently having dependencies resolved.
	resolving mapset.Set[string]
	path      []string
}

func (e *Engine) execute(ctx context.Context, op Operation, exclusive bool, fn func(ctx context.Context, r *run) error) (*Report, error) {
	id := uuid.NewString()
	ctx = observability.WithRun(ctx, id, string(op))
	r := &run{
		op:        op,
		report:    &Report{RunID: id, Operation: op, Started: e.now()},
		resolving: mapset.NewThreadUnsafeSet[string](),
	}

	lock := e.cache.Lock().Shared
	if exclusive {
		lock = e.cache.Lock().Exclusive
	}
	unlock, err := lock(ctx)
	if err != nil {
		r.report.Finished = e.now()
		return r.report, err
	}
	defer unlock()

	slog.DebugContext(ctx, "Operation started", logfields.Operation(string(op)), logfields.RunID(id))
	err = fn(ctx, r)
	r.report.Finished = e.now()
	for _, w := range r.report.Warnings {
		slog.WarnContext(ctx, w.Message, logfields.Meta(w.Meta), logfields.Package(w.Package), logfields.RunID(id))
	}
	if err != nil {
		slog.DebugContext(ctx, "Operation failed", logfields.Operation(string(op)), logfields.RunID(id), logfields.Error(err))
	} else {
		slog.DebugContext(ctx, "Operation finished", logfields.Operation(string(op)), logfields.RunID(id),
			logfields.Duration(r.report.Duration()))
	}
	for _, o := range e.observers {
		o.ObserveRun(ctx, r.report, err)
	}
	return r.report, err
}

// put persists rec and records the transition.
func (e *Engine) put(ctx context.Context, r *run, meta, pkg string, from cache.Status, rec cache.Record, mechanism string) error {
	if err := e.cache.Put(meta, pkg, rec); err != nil {
		return err
	}
	e.record(ctx, r, meta, pkg, from, rec.Status, mechanism)
	return nil
}

func (e *Engine) record(ctx context.Context, r *run, meta, pkg string, from, to cache.Status, mechanism string) {
	t := Transition{
		RunID:     r.report.RunID,
		Operation: r.op,
		Meta:      meta,
		Package:   pkg,
		From:      from,
		To:        to,
		Mechanism: mechanism,
		At:        e.now(),
	}
	r.report.Transitions = append(r.report.Transitions, t)
	slog.InfoContext(ctx, "Package status changed", logfields.Meta(meta), logfields.Package(pkg),
		logfields.From(string(from)), logfields.To(string(to)))
	for _, o := range e.observers {
		o.ObserveTransition(ctx, t)
	}
}

// find loads a descriptor, turning store diagnostics into warnings.
func (e *Engine) find(r *run, name string) (*descriptor.Descriptor, error) {
	d, diags, err := e.store.FindByName(name)
	for _, dg := range diags {
		r.report.warn("", "", "%s", dg.String())
	}
	return d, err
}
