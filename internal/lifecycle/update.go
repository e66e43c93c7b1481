package lifecycle

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// Update refreshes descriptors and reinstalls installed packages.
//
// With no selections every descriptor is re-fetched and every installed
// package under it is reinstalled. A bare meta-package token re-fetches only
// that descriptor. A token with a package pattern reinstalls the matching
// installed packages without re-fetching.
func (e *Engine) Update(ctx context.Context, sels []selection.Selection) (*Report, error) {
	return e.execute(ctx, OpUpdate, true, func(ctx context.Context, r *run) error {
		if len(sels) == 0 {
			all, diags, err := e.store.List()
			if err != nil {
				return err
			}
			for _, dg := range diags {
				r.report.warn("", "", "%s", dg.String())
			}
			for _, d := range all {
				name, err := e.refetch(ctx, r, d)
				if err != nil {
					return err
				}
				if err := e.install(ctx, r, name, selection.All, false, IfInstalledReinstall); err != nil {
					return err
				}
			}
			return nil
		}

		for _, sel := range sels {
			if !sel.HasPattern {
				d, err := e.find(r, sel.Meta)
				if err != nil {
					return err
				}
				if _, err := e.refetch(ctx, r, d); err != nil {
					return err
				}
				continue
			}
			if err := e.install(ctx, r, sel.Meta, sel.Pattern, false, IfInstalledReinstall); err != nil {
				return err
			}
		}
		return nil
	})
}

// refetch replaces d with the document at its source and returns the name the
// new document declares.
func (e *Engine) refetch(ctx context.Context, r *run, d *descriptor.Descriptor) (string, error) {
	uri, err := e.store.SourceURI(d)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Updating meta-package", logfields.Meta(d.Name), logfields.URI(uri))
	res, err := e.load(ctx, r, uri, descriptor.Replace)
	if err != nil {
		return "", err
	}
	fresh := res.Descriptor
	if fresh.Name != d.Name {
		r.report.warn(d.Name, "", "source now declares meta-package %q", fresh.Name)
	}
	e.warnUndeclared(r, d.Name, fresh)
	return fresh.Name, nil
}

// warnUndeclared reports records left behind by packages the descriptor no
// longer declares.
func (e *Engine) warnUndeclared(r *run, meta string, d *descriptor.Descriptor) {
	keys, err := e.cache.Keys()
	if err != nil {
		return
	}
	for _, pkg := range keys[meta] {
		if _, ok := d.Package(pkg); !ok || d.Name != meta {
			r.report.warn(meta, pkg, "package is no longer declared; its record and content were kept")
		}
	}
}
