package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// Check reports every integrity problem without changing anything.
func (e *Engine) Check(ctx context.Context) ([]cache.Problem, *Report, error) {
	var problems []cache.Problem
	report, err := e.execute(ctx, OpRepair, false, func(context.Context, *run) error {
		var err error
		problems, err = e.cache.Scan()
		return err
	})
	return problems, report, err
}

// ForceStatus sets the selected packages to status without running the
// installer. notloaded deletes content and record; loaded and installed
// require the content directory to exist.
func (e *Engine) ForceStatus(ctx context.Context, sels []selection.Selection, status cache.Status) (*Report, error) {
	switch status {
	case cache.NotLoaded, cache.Loaded, cache.Installed:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("cannot force status %q; use notloaded, loaded or installed", status)).Build()
	}
	return e.execute(ctx, OpRepair, true, func(ctx context.Context, r *run) error {
		for _, sel := range sels {
			pattern := sel.Pattern
			if !sel.HasPattern {
				pattern = selection.All
			}
			d, names, err := e.repairCandidates(r, sel.Meta, pattern)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				r.report.warn(sel.Meta, "", "pattern %q matches no packages", pattern)
			}
			for _, name := range names {
				if err := e.force(ctx, r, d, sel.Meta, name, status); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// repairCandidates resolves pattern against the declared packages, or against
// what the cache and packages directory know when the descriptor is gone.
func (e *Engine) repairCandidates(r *run, meta, pattern string) (*descriptor.Descriptor, []string, error) {
	d, err := e.find(r, meta)
	if err == nil {
		names, err := selection.Resolve(pattern, d.PackageNames())
		return d, names, err
	}
	var nle *descriptor.NotLoadedError
	if !stderrors.As(err, &nle) {
		return nil, nil, err
	}

	known := mapset.NewThreadUnsafeSet[string]()
	if keys, kerr := e.cache.Keys(); kerr == nil {
		known.Append(keys[meta]...)
	}
	if entries, derr := os.ReadDir(e.cache.PackagesDir()); derr == nil {
		for _, ent := range entries {
			if m, pkg, ok := strings.Cut(ent.Name(), "."); ok && ent.IsDir() && m == meta {
				known.Add(pkg)
			}
		}
	}
	names, err := selection.Resolve(pattern, sortedSet(known))
	return nil, names, err
}

func (e *Engine) force(ctx context.Context, r *run, d *descriptor.Descriptor, meta, pkg string, status cache.Status) error {
	var from cache.Status
	if prev, err := e.cache.Get(meta, pkg); err == nil {
		from = prev.Status
	} else {
		var ce *cache.CorruptedError
		if !stderrors.As(err, &ce) {
			return err
		}
		from = ce.Status
	}

	dir := e.cache.PackageDir(meta, pkg)
	if status == cache.NotLoaded {
		return e.unloadPackage(ctx, r, meta, pkg, cache.Record{Status: from, PackageDir: dir})
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return errors.NotFoundError(fmt.Sprintf("package %s.%s has no content directory; force it to notloaded instead", meta, pkg)).
			WithContext("path", dir).Build()
	}

	rec := cache.Record{Status: status, PackageDir: dir, PackagesDir: e.cache.PackagesDir()}
	if status == cache.Installed {
		rec.TargetDir = e.settings.TargetDir
		if d != nil {
			if p, ok := d.Package(pkg); ok {
				target, err := e.resolveTarget(meta, p)
				if err != nil {
					return err
				}
				rec.TargetDir = target
			}
		}
		rec.Tags = e.settings.Tags
		rec.Hostname = e.settings.Hostname
	}
	return e.put(ctx, r, meta, pkg, from, rec, "")
}

// Rebuild discards the cache document and records every content directory as
// loaded. Leftover staging directories are deleted.
func (e *Engine) Rebuild(ctx context.Context) (*Report, error) {
	return e.execute(ctx, OpRepair, true, func(ctx context.Context, r *run) error {
		entries, err := os.ReadDir(e.cache.PackagesDir())
		if err != nil && !os.IsNotExist(err) {
			return errors.FileSystemError("cannot read packages directory").WithCause(err).Build()
		}
		if err := e.cache.Reset(); err != nil {
			return err
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				continue
			}
			name := ent.Name()
			if strings.HasPrefix(name, cache.StagingPrefix) {
				if err := os.RemoveAll(filepath.Join(e.cache.PackagesDir(), name)); err != nil {
					r.report.warn("", "", "cannot remove staging directory %s: %v", name, err)
				}
				continue
			}
			meta, pkg, ok := strings.Cut(name, ".")
			if !ok {
				continue
			}
			rec := cache.Record{Status: cache.Loaded, PackageDir: e.cache.PackageDir(meta, pkg), PackagesDir: e.cache.PackagesDir()}
			if err := e.put(ctx, r, meta, pkg, cache.NotLoaded, rec, ""); err != nil {
				return err
			}
		}
		if len(r.report.Transitions) > 0 {
			r.report.warn("", "", "installed packages are now recorded as loaded; reinstall them with mcm install")
		}
		return nil
	})
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
