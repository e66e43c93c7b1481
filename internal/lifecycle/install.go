package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/observability"
	"git.home.luguber.info/inful/mcm/internal/selection"
)

// IfInstalled decides what install does with packages that are already installed.
type IfInstalled int

const (
	// IfInstalledExit fails with AlreadyInstalledError.
	IfInstalledExit IfInstalled = iota
	// IfInstalledSkip leaves them alone.
	IfInstalledSkip
	// IfInstalledReinstall reinstalls installed packages and leaves every
	// other package alone.
	IfInstalledReinstall
)

func (p IfInstalled) String() string {
	switch p {
	case IfInstalledSkip:
		return "skip"
	case IfInstalledReinstall:
		return "reinstall"
	default:
		return "exit"
	}
}

// InstallOptions control Install.
type InstallOptions struct {
	LoadOnly    bool
	IfInstalled IfInstalled
}

// Install acquires and installs the selected packages, dependencies first.
// A selection without a pattern selects every package.
func (e *Engine) Install(ctx context.Context, sels []selection.Selection, opts InstallOptions) (*Report, error) {
	return e.execute(ctx, OpInstall, true, func(ctx context.Context, r *run) error {
		for _, sel := range sels {
			pattern := sel.Pattern
			if !sel.HasPattern {
				pattern = selection.All
			}
			if err := e.install(ctx, r, sel.Meta, pattern, opts.LoadOnly, opts.IfInstalled); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) install(ctx context.Context, r *run, meta, pattern string, loadOnly bool, policy IfInstalled) error {
	d, err := e.find(r, meta)
	if err != nil {
		return err
	}
	names, err := selection.Resolve(pattern, d.PackageNames())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		r.report.warn(meta, "", "pattern %q matches no packages", pattern)
		return nil
	}

	var plan []descriptor.Package
	for _, name := range names {
		rec, err := e.cache.Get(meta, name)
		if err != nil {
			return err
		}
		pkg, _ := d.Package(name)
		switch rec.Status {
		case cache.MidInstall, cache.MidRemove:
			return cache.InProgressError(meta, name, rec.Status)
		case cache.Installed:
			switch policy {
			case IfInstalledExit:
				return &AlreadyInstalledError{Meta: meta, Package: name}
			case IfInstalledReinstall:
				plan = append(plan, pkg)
			default:
				slog.InfoContext(ctx, "Package already installed", logfields.Meta(meta), logfields.Package(name))
			}
		default:
			if policy != IfInstalledReinstall {
				plan = append(plan, pkg)
			}
		}
	}

	for _, p := range plan {
		if err := e.installDependencies(ctx, r, meta, p, loadOnly); err != nil {
			return err
		}
	}
	for _, p := range plan {
		if err := e.installOne(ctx, r, meta, p, loadOnly, policy == IfInstalledReinstall); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) installDependencies(ctx context.Context, r *run, meta string, pkg descriptor.Package, loadOnly bool) error {
	if len(pkg.Dependencies) == 0 {
		return nil
	}
	key := descriptor.FullName(meta, pkg.Name)
	if r.resolving.Contains(key) {
		return &DependencyCycleError{Path: append(append([]string(nil), r.path...), key)}
	}
	r.resolving.Add(key)
	r.path = append(r.path, key)
	defer func() {
		r.resolving.Remove(key)
		r.path = r.path[:len(r.path)-1]
	}()

	slog.InfoContext(ctx, "Resolving dependencies", logfields.Meta(meta), logfields.Package(pkg.Name))
	for _, dep := range pkg.Dependencies {
		if err := e.install(ctx, r, dep.Meta, dep.Pattern, loadOnly, IfInstalledSkip); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) installOne(ctx context.Context, r *run, meta string, pkg descriptor.Package, loadOnly, reinstall bool) error {
	ctx = observability.WithPackage(ctx, meta, pkg.Name)
	// Dependencies may have touched this package; read the status again.
	rec, err := e.cache.Get(meta, pkg.Name)
	if err != nil {
		return err
	}
	if rec.Status.InProgress() {
		return cache.InProgressError(meta, pkg.Name, rec.Status)
	}
	if rec.Status == cache.Installed && !reinstall {
		return nil
	}

	attrs := installAttrs{hostname: e.settings.Hostname, tags: e.settings.Tags}
	if reinstall && rec.Status == cache.Installed {
		attrs.target = rec.TargetDir
		attrs.tags = rec.Tags
		if attrs.hostname == "" {
			attrs.hostname = rec.Hostname
		}
	}
	if attrs.target == "" {
		if attrs.target, err = e.resolveTarget(meta, pkg); err != nil {
			return err
		}
	}

	if rec.Status == cache.NotLoaded {
		if rec, err = e.acquire(ctx, r, meta, pkg); err != nil {
			return err
		}
	}
	if loadOnly {
		return nil
	}

	from := rec.Status
	mid := cache.Record{
		Status:      cache.MidInstall,
		PackageDir:  e.cache.PackageDir(meta, pkg.Name),
		PackagesDir: e.cache.PackagesDir(),
		TargetDir:   attrs.target,
		Tags:        attrs.tags,
		Hostname:    attrs.hostname,
	}
	if err := e.put(ctx, r, meta, pkg.Name, from, mid, ""); err != nil {
		return err
	}
	req := installer.Request{
		Meta:        meta,
		Package:     pkg.Name,
		TargetDir:   mid.TargetDir,
		PackagesDir: mid.PackagesDir,
		Hostname:    mid.Hostname,
		Tags:        mid.Tags,
	}
	if err := e.bridge.Install(ctx, req); err != nil {
		return err
	}
	done := mid
	done.Status = cache.Installed
	return e.put(ctx, r, meta, pkg.Name, cache.MidInstall, done, "")
}

type installAttrs struct {
	target   string
	hostname string
	tags     []string
}

// acquire fetches content into a staging directory, records the package as
// loaded and moves the content into place. A crash at any point leaves either
// no content directory or a content directory with a record.
func (e *Engine) acquire(ctx context.Context, r *run, meta string, pkg descriptor.Package) (cache.Record, error) {
	full := descriptor.FullName(meta, pkg.Name)
	final := e.cache.PackageDir(meta, pkg.Name)
	staging := filepath.Join(e.cache.PackagesDir(), cache.StagingPrefix+uuid.NewString())

	slog.InfoContext(ctx, "Loading package", logfields.Meta(meta), logfields.Package(pkg.Name))
	mech, err := e.acquirer.Acquire(ctx, full, staging, pkg.Mechanisms)
	if err != nil {
		_ = os.RemoveAll(staging)
		return cache.Record{}, err
	}

	rec := cache.Record{Status: cache.Loaded, PackageDir: final, PackagesDir: e.cache.PackagesDir()}
	if err := e.cache.Put(meta, pkg.Name, rec); err != nil {
		_ = os.RemoveAll(staging)
		return cache.Record{}, err
	}
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return cache.Record{}, errors.FileSystemError("cannot move acquired package into place").
			WithCause(err).WithContext("path", final).Build()
	}
	e.record(ctx, r, meta, pkg.Name, cache.NotLoaded, cache.Loaded, string(mech.Kind))
	return rec, nil
}
