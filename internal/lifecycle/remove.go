package lifecycle

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/observability"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// RemoveOptions control Remove.
type RemoveOptions struct {
	// UninstallOnly keeps the content directory and the loaded record.
	UninstallOnly bool
	// ExitIfNotInstalled fails with AlreadyAbsentError instead of skipping.
	ExitIfNotInstalled bool
}

// Remove uninstalls the selected packages. Dependencies are never removed.
func (e *Engine) Remove(ctx context.Context, sels []selection.Selection, opts RemoveOptions) (*Report, error) {
	return e.execute(ctx, OpRemove, true, func(ctx context.Context, r *run) error {
		for _, sel := range sels {
			pattern := sel.Pattern
			if !sel.HasPattern {
				pattern = selection.All
			}
			if err := e.remove(ctx, r, sel.Meta, pattern, opts); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) remove(ctx context.Context, r *run, meta, pattern string, opts RemoveOptions) error {
	d, err := e.find(r, meta)
	if err != nil {
		return err
	}
	names, err := selection.Resolve(pattern, d.PackageNames())
	if err != nil {
		return err
	}

	type target struct {
		name string
		rec  cache.Record
	}
	var targets []target
	for _, name := range names {
		rec, err := e.cache.Get(meta, name)
		if err != nil {
			return err
		}
		switch rec.Status {
		case cache.MidInstall, cache.MidRemove:
			return cache.InProgressError(meta, name, rec.Status)
		case cache.NotLoaded, cache.Loaded:
			if opts.ExitIfNotInstalled {
				return &AlreadyAbsentError{Meta: meta, Package: name}
			}
			slog.InfoContext(ctx, "Package not installed", logfields.Meta(meta), logfields.Package(name))
		default:
			targets = append(targets, target{name: name, rec: rec})
		}
	}

	for _, t := range targets {
		if err := e.removeOne(ctx, r, meta, t.name, t.rec, opts.UninstallOnly); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) removeOne(ctx context.Context, r *run, meta, pkg string, rec cache.Record, uninstallOnly bool) error {
	ctx = observability.WithPackage(ctx, meta, pkg)
	mid := rec
	mid.Status = cache.MidRemove
	if err := e.put(ctx, r, meta, pkg, rec.Status, mid, ""); err != nil {
		return err
	}
	req := installer.Request{
		Meta:        meta,
		Package:     pkg,
		TargetDir:   rec.TargetDir,
		PackagesDir: rec.PackagesDir,
		Hostname:    rec.Hostname,
		Tags:        rec.Tags,
	}
	if err := e.bridge.Remove(ctx, req); err != nil {
		return err
	}
	loaded := cache.Record{Status: cache.Loaded, PackageDir: rec.PackageDir, PackagesDir: rec.PackagesDir}
	if err := e.put(ctx, r, meta, pkg, cache.MidRemove, loaded, ""); err != nil {
		return err
	}
	if uninstallOnly {
		return nil
	}
	return e.unloadPackage(ctx, r, meta, pkg, loaded)
}

// unloadPackage deletes the content directory, then the record.
func (e *Engine) unloadPackage(ctx context.Context, r *run, meta, pkg string, rec cache.Record) error {
	dir := rec.PackageDir
	if dir == "" {
		dir = e.cache.PackageDir(meta, pkg)
	}
	slog.DebugContext(ctx, "Removing package content", logfields.Meta(meta), logfields.Package(pkg), logfields.Path(dir))
	if err := os.RemoveAll(dir); err != nil {
		return errors.FileSystemError("cannot remove package directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	if err := e.cache.Delete(meta, pkg); err != nil {
		return err
	}
	e.record(ctx, r, meta, pkg, rec.Status, cache.NotLoaded, "")
	return nil
}
