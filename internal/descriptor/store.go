package descriptor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// LoadPolicy controls what Load does when the name is already loaded.
type LoadPolicy int

const (
	// SkipIfLoaded keeps the stored descriptor.
	SkipIfLoaded LoadPolicy = iota
	// Replace swaps in the newly fetched document.
	Replace
)

// Fetcher retrieves the bytes behind a URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// LoadResult describes the outcome of a Load.
type LoadResult struct {
	Descriptor  *Descriptor
	URI         string
	Skipped     bool // already loaded and policy was SkipIfLoaded
	Replaced    bool
	Diagnostics []Diagnostic
}

// Store is a directory holding one descriptor document per meta-package.
type Store struct {
	dir     string
	fetcher Fetcher
	sources *SourceIndex
}

// NewStore opens (creating if needed) the descriptor directory.
func NewStore(dir string, fetcher Fetcher) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileSystemError("cannot create descriptor directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	return &Store{
		dir:     dir,
		fetcher: fetcher,
		sources: NewSourceIndex(filepath.Join(dir, SourcesFileName)),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Load fetches, parses and validates the document at uri and stores it.
// The previous document is only replaced once the new one has validated.
func (s *Store) Load(ctx context.Context, raw string, policy LoadPolicy) (*LoadResult, error) {
	uri, err := fetch.NormalizeURI(raw)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	d, err := Parse(data)
	if err != nil {
		var ve *ValidationError
		if stderrors.As(err, &ve) {
			ve.Source = uri
		}
		return nil, err
	}

	existing, diags, err := s.lookup(d.Name)
	if err != nil {
		return nil, err
	}
	res := &LoadResult{Descriptor: d, URI: uri, Diagnostics: diags}
	if existing != nil && policy == SkipIfLoaded {
		slog.WarnContext(ctx, "Meta-package already loaded, skipping", logfields.Meta(d.Name), logfields.Path(existing.Path))
		res.Descriptor = existing
		res.Skipped = true
		return res, nil
	}

	target := filepath.Join(s.dir, d.Name+".toml")
	if err := atomicwriter.WriteFile(target, data, 0o644); err != nil {
		return nil, errors.FileSystemError("cannot store descriptor").
			WithCause(err).WithContext("path", target).Build()
	}
	if existing != nil && existing.Path != target {
		if err := os.Remove(existing.Path); err != nil && !os.IsNotExist(err) {
			return nil, errors.FileSystemError("cannot remove replaced descriptor").
				WithCause(err).WithContext("path", existing.Path).Build()
		}
	}
	if err := s.sources.Set(d.Name, uri); err != nil {
		return nil, errors.FileSystemError("cannot record descriptor source").WithCause(err).Build()
	}

	d.Path = target
	res.Replaced = existing != nil
	slog.InfoContext(ctx, "Loaded meta-package", logfields.Meta(d.Name), logfields.URI(uri))
	return res, nil
}

// FindByName scans the store for the named descriptor.
func (s *Store) FindByName(name string) (*Descriptor, []Diagnostic, error) {
	d, diags, err := s.lookup(name)
	if err != nil {
		return nil, diags, err
	}
	if d == nil {
		all, _, _ := s.List()
		names := make([]string, len(all))
		for i, x := range all {
			names[i] = x.Name
		}
		return nil, diags, &NotLoadedError{Name: name, Suggestions: Suggest(name, names)}
	}
	return d, diags, nil
}

func (s *Store) lookup(name string) (*Descriptor, []Diagnostic, error) {
	all, diags, err := s.List()
	if err != nil {
		return nil, diags, err
	}
	for _, d := range all {
		if d.Name == name {
			return d, diags, nil
		}
	}
	return nil, diags, nil
}

// List parses every stored document in file name order. Documents that do not
// parse are reported as diagnostics and skipped.
func (s *Store) List() ([]*Descriptor, []Diagnostic, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, errors.FileSystemError("cannot read descriptor directory").
			WithCause(err).WithContext("path", s.dir).Build()
	}

	var (
		out   []*Descriptor
		diags []Diagnostic
		seen  = map[string]string{}
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, Diagnostic{Path: path, Err: err})
			continue
		}
		d, err := Parse(data)
		if err != nil {
			diags = append(diags, Diagnostic{Path: path, Err: err})
			continue
		}
		if prev, dup := seen[d.Name]; dup {
			diags = append(diags, Diagnostic{Path: path, Err: fmt.Errorf("duplicate meta-package %q, already defined by %s", d.Name, prev)})
			continue
		}
		seen[d.Name] = path
		d.Path = path
		out = append(out, d)
	}
	return out, diags, nil
}

// Remove deletes the backing document of name. Packages must already have
// been removed by the caller.
func (s *Store) Remove(name string) error {
	d, _, err := s.FindByName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
		return errors.FileSystemError("cannot remove descriptor").
			WithCause(err).WithContext("path", d.Path).Build()
	}
	if err := s.sources.Delete(name); err != nil {
		slog.Warn("Failed to update source index", logfields.Meta(name), logfields.Error(err))
	}
	return nil
}

// SourceURI returns where d should be re-fetched from: the uri it declares,
// else the location it was loaded from.
func (s *Store) SourceURI(d *Descriptor) (string, error) {
	if d.URI != "" {
		return d.URI, nil
	}
	entry, ok, err := s.sources.Get(d.Name)
	if err != nil {
		return "", errors.FileSystemError("cannot read source index").WithCause(err).Build()
	}
	if !ok || entry.URI == "" {
		return "", errors.ConfigError(fmt.Sprintf("no source recorded for meta-package %q; reload it with mcm load", d.Name)).
			WithContext("meta_package", d.Name).Build()
	}
	return entry.URI, nil
}

// Sources exposes the source index.
func (s *Store) Sources() *SourceIndex { return s.sources }
