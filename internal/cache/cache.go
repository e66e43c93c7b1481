// Package cache persists the status record of every package in a single JSON
// document of the form {meta: {"packages": {pkg: record}}}.
//
// Every Get re-reads the document and checks the record against its content
// directory; this is the sole integrity gate of the lifecycle engine.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/moby/sys/atomicwriter"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// FileName is the cache document inside the cache directory.
const FileName = "cache.json"

type metaEntry struct {
	Packages map[string]json.RawMessage `json:"packages"`
}

type document map[string]*metaEntry

// Cache is the persisted status mapping. It is not safe for concurrent use;
// callers serialize through Lock.
type Cache struct {
	file        string
	packagesDir string
	lock        *Lock
}

// Open creates the cache document as {} if it is absent.
func Open(cacheDir, packagesDir string) (*Cache, error) {
	for _, dir := range []string{cacheDir, packagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileSystemError("cannot create directory").
				WithCause(err).WithContext("path", dir).Build()
		}
	}
	c := &Cache{
		file:        filepath.Join(cacheDir, FileName),
		packagesDir: packagesDir,
	}
	c.lock = NewLock(c.file + ".lock")
	if _, err := os.Stat(c.file); os.IsNotExist(err) {
		if err := atomicwriter.WriteFile(c.file, []byte("{}\n"), 0o644); err != nil {
			return nil, errors.FileSystemError("cannot create cache file").
				WithCause(err).WithContext("path", c.file).Build()
		}
	}
	return c, nil
}

// File returns the cache document path.
func (c *Cache) File() string { return c.file }

// PackagesDir returns the directory holding package content dirs.
func (c *Cache) PackagesDir() string { return c.packagesDir }

// PackageDir returns the content directory of meta.pkg.
func (c *Cache) PackageDir(meta, pkg string) string {
	return filepath.Join(c.packagesDir, meta+"."+pkg)
}

// Lock returns the advisory lock guarding the document.
func (c *Cache) Lock() *Lock { return c.lock }

// Get returns the record of meta.pkg, or {notloaded} when no content
// directory exists. A directory without a valid record is corruption.
func (c *Cache) Get(meta, pkg string) (Record, error) {
	if !isDir(c.PackageDir(meta, pkg)) {
		return Record{Status: NotLoaded}, nil
	}
	doc, err := c.read()
	if err != nil {
		return Record{}, err
	}
	entry, ok := doc[meta]
	if !ok || entry == nil {
		return Record{}, &CorruptedError{Meta: meta, Package: pkg, Reason: "package directory exists but the cache has no record"}
	}
	raw, ok := entry.Packages[pkg]
	if !ok {
		return Record{}, &CorruptedError{Meta: meta, Package: pkg, Reason: "package directory exists but the cache has no record"}
	}
	r, problem := decodeRecord(raw)
	if problem != "" {
		return Record{}, &CorruptedError{Meta: meta, Package: pkg, Status: r.Status, Reason: problem}
	}
	if r.Status == NotLoaded {
		return Record{}, &CorruptedError{Meta: meta, Package: pkg, Status: r.Status, Reason: "status notloaded but package directory exists"}
	}
	return r, nil
}

// Put overwrites the record of meta.pkg and persists the whole document.
func (c *Cache) Put(meta, pkg string, r Record) error {
	if !r.Status.Valid() {
		return errors.InternalError(fmt.Sprintf("refusing to persist invalid status %q", r.Status)).Build()
	}
	doc, err := c.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return errors.InternalError("cannot encode record").WithCause(err).Build()
	}
	entry, ok := doc[meta]
	if !ok || entry == nil {
		entry = &metaEntry{}
		doc[meta] = entry
	}
	if entry.Packages == nil {
		entry.Packages = map[string]json.RawMessage{}
	}
	entry.Packages[pkg] = raw
	return c.write(doc)
}

// Delete removes the record of meta.pkg; empty meta entries are dropped.
func (c *Cache) Delete(meta, pkg string) error {
	doc, err := c.read()
	if err != nil {
		return err
	}
	entry, ok := doc[meta]
	if !ok || entry == nil {
		return nil
	}
	if _, ok := entry.Packages[pkg]; !ok {
		return nil
	}
	delete(entry.Packages, pkg)
	if len(entry.Packages) == 0 {
		delete(doc, meta)
	}
	return c.write(doc)
}

// Keys returns the recorded package names per meta-package, sorted.
func (c *Cache) Keys() (map[string][]string, error) {
	doc, err := c.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(doc))
	for meta, entry := range doc {
		if entry == nil {
			out[meta] = nil
			continue
		}
		names := make([]string, 0, len(entry.Packages))
		for pkg := range entry.Packages {
			names = append(names, pkg)
		}
		sort.Strings(names)
		out[meta] = names
	}
	return out, nil
}

func (c *Cache) read() (document, error) {
	data, err := os.ReadFile(c.file)
	if os.IsNotExist(err) {
		return document{}, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("cannot read cache file").
			WithCause(err).WithContext("path", c.file).Build()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &CorruptedError{Reason: "cache file is empty"}
	}
	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptedError{Reason: "cache file is not a valid document", Err: err}
	}
	return doc, nil
}

func (c *Cache) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.InternalError("cannot encode cache").WithCause(err).Build()
	}
	if err := atomicwriter.WriteFile(c.file, append(data, '\n'), 0o644); err != nil {
		return errors.FileSystemError("cannot write cache file").
			WithCause(err).WithContext("path", c.file).Build()
	}
	return nil
}

// Reset replaces the whole document. Only repair uses it.
func (c *Cache) Reset() error {
	return c.write(document{})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
