package cache

import (
	stderrors "errors"
	"os"
	"sort"
	"strings"
)

// ProblemKind classifies an integrity violation found by Scan.
type ProblemKind string

const (
	ProblemUnreadable    ProblemKind = "unreadable"     // the document itself cannot be decoded
	ProblemMissingRecord ProblemKind = "missing_record" // content dir without a record
	ProblemInvalidRecord ProblemKind = "invalid_record" // bad status or missing keys
	ProblemInProgress    ProblemKind = "in_progress"    // midinstall or midremove
	ProblemStaleRecord   ProblemKind = "stale_record"   // record without a content dir
	ProblemStaging       ProblemKind = "staging"        // leftover acquisition staging dir
)

// Problem is one integrity violation.
type Problem struct {
	Meta    string
	Package string
	Kind    ProblemKind
	Status  Status
	Detail  string
}

// StagingPrefix marks in-flight acquisition directories in the packages dir.
const StagingPrefix = ".staging-"

// Scan checks every record and content directory without modifying anything.
func (c *Cache) Scan() ([]Problem, error) {
	var problems []Problem

	doc, err := c.read()
	if err != nil {
		var ce *CorruptedError
		if stderrors.As(err, &ce) {
			return []Problem{{Kind: ProblemUnreadable, Detail: ce.Error()}}, nil
		}
		return nil, err
	}

	recorded := map[string]bool{}
	for meta, entry := range doc {
		if entry == nil {
			continue
		}
		for pkg, raw := range entry.Packages {
			recorded[meta+"."+pkg] = true
			r, problem := decodeRecord(raw)
			switch {
			case problem != "":
				problems = append(problems, Problem{Meta: meta, Package: pkg, Kind: ProblemInvalidRecord, Status: r.Status, Detail: problem})
			case r.Status.InProgress():
				problems = append(problems, Problem{Meta: meta, Package: pkg, Kind: ProblemInProgress, Status: r.Status,
					Detail: "interrupted while " + string(r.Status)})
			case r.Status != NotLoaded && !isDir(c.PackageDir(meta, pkg)):
				problems = append(problems, Problem{Meta: meta, Package: pkg, Kind: ProblemStaleRecord, Status: r.Status,
					Detail: "record exists but package directory is missing"})
			}
		}
	}

	entries, err := os.ReadDir(c.packagesDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, StagingPrefix) {
			problems = append(problems, Problem{Package: name, Kind: ProblemStaging, Detail: "leftover acquisition directory"})
			continue
		}
		meta, pkg, ok := strings.Cut(name, ".")
		if !ok {
			continue
		}
		if !recorded[name] {
			problems = append(problems, Problem{Meta: meta, Package: pkg, Kind: ProblemMissingRecord,
				Detail: "package directory exists but the cache has no record"})
		}
	}

	sort.Slice(problems, func(i, j int) bool {
		a, b := problems[i], problems[j]
		if a.Meta != b.Meta {
			return a.Meta < b.Meta
		}
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Kind < b.Kind
	})
	return problems, nil
}
