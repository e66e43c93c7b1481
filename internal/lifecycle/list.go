package lifecycle

import (
	"context"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
)

// PackageState pairs a declared package with its current record. Err is set
// when the record is corrupted.
type PackageState struct {
	Package descriptor.Package
	Record  cache.Record
	Err     error
}

// MetaState is one loaded meta-package with the state of every package.
type MetaState struct {
	Descriptor *descriptor.Descriptor
	Packages   []PackageState
}

// List returns every loaded meta-package with every declared package.
// Corrupted records are reported per package instead of failing the listing.
func (e *Engine) List(ctx context.Context) ([]MetaState, *Report, error) {
	var out []MetaState
	report, err := e.execute(ctx, OpList, false, func(_ context.Context, r *run) error {
		all, diags, err := e.store.List()
		if err != nil {
			return err
		}
		for _, dg := range diags {
			r.report.warn("", "", "%s", dg.String())
		}
		for _, d := range all {
			out = append(out, e.state(d))
		}
		return nil
	})
	return out, report, err
}

// Show returns the state of one meta-package.
func (e *Engine) Show(ctx context.Context, name string) (*MetaState, *Report, error) {
	var out *MetaState
	report, err := e.execute(ctx, OpList, false, func(_ context.Context, r *run) error {
		d, err := e.find(r, name)
		if err != nil {
			return err
		}
		st := e.state(d)
		out = &st
		return nil
	})
	return out, report, err
}

func (e *Engine) state(d *descriptor.Descriptor) MetaState {
	ms := MetaState{Descriptor: d, Packages: make([]PackageState, 0, len(d.Packages))}
	for _, p := range d.Packages {
		rec, err := e.cache.Get(d.Name, p.Name)
		ms.Packages = append(ms.Packages, PackageState{Package: p, Record: rec, Err: err})
	}
	return ms
}
