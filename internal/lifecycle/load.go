package lifecycle

import (
	"context"
	stderrors "errors"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// Load stores the descriptors at uris. With skipIfLoaded an already loaded
// name keeps its stored document; otherwise it is replaced.
func (e *Engine) Load(ctx context.Context, uris []string, skipIfLoaded bool) (*Report, error) {
	return e.execute(ctx, OpLoad, true, func(ctx context.Context, r *run) error {
		policy := descriptor.Replace
		if skipIfLoaded {
			policy = descriptor.SkipIfLoaded
		}
		for _, uri := range uris {
			if _, err := e.load(ctx, r, uri, policy); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) load(ctx context.Context, r *run, uri string, policy descriptor.LoadPolicy) (*descriptor.LoadResult, error) {
	res, err := e.store.Load(ctx, uri, policy)
	if err != nil {
		return nil, err
	}
	for _, dg := range res.Diagnostics {
		r.report.warn("", "", "%s", dg.String())
	}
	if res.Skipped {
		r.report.warn(res.Descriptor.Name, "", "already loaded from %s, skipping", res.Descriptor.Path)
		return res, nil
	}
	r.report.Loaded = append(r.report.Loaded, res.Descriptor.Name)
	return res, nil
}

// Unload removes every package of the named meta-packages, then their
// descriptors. Names that are not loaded produce a warning.
func (e *Engine) Unload(ctx context.Context, names []string) (*Report, error) {
	return e.execute(ctx, OpUnload, true, func(ctx context.Context, r *run) error {
		for _, name := range names {
			if err := e.unload(ctx, r, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) unload(ctx context.Context, r *run, name string) error {
	d, err := e.find(r, name)
	if err != nil {
		var nle *descriptor.NotLoadedError
		if stderrors.As(err, &nle) {
			r.report.warn(name, "", "%s", err.Error())
			return nil
		}
		return err
	}

	if err := e.remove(ctx, r, name, selection.All, RemoveOptions{}); err != nil {
		return err
	}
	// Packages that were only loaded still own a content directory.
	for _, pkg := range d.PackageNames() {
		rec, err := e.cache.Get(name, pkg)
		if err != nil {
			return err
		}
		if rec.Status == cache.Loaded {
			if err := e.unloadPackage(ctx, r, name, pkg, rec); err != nil {
				return err
			}
		}
	}
	if err := e.store.Remove(name); err != nil {
		return err
	}
	r.report.Unloaded = append(r.report.Unloaded, name)
	return nil
}
