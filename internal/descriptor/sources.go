package descriptor

import (
	"fmt"
	"os"
	"time"

	"github.com/moby/sys/atomicwriter"
	"gopkg.in/yaml.v3"
)

// SourcesFileName is the hidden index of where each descriptor was loaded from.
const SourcesFileName = ".sources.yaml"

// SourceEntry records the origin of a loaded descriptor.
type SourceEntry struct {
	URI      string    `yaml:"uri"`
	LoadedAt time.Time `yaml:"loaded_at"`
}

type sourcesDocument struct {
	Sources map[string]SourceEntry `yaml:"sources"`
}

// SourceIndex is the YAML file mapping meta-package names to source URIs.
type SourceIndex struct {
	path string
	now  func() time.Time
}

// NewSourceIndex returns an index stored at path.
func NewSourceIndex(path string) *SourceIndex {
	return &SourceIndex{path: path, now: time.Now}
}

func (i *SourceIndex) read() (sourcesDocument, error) {
	doc := sourcesDocument{Sources: map[string]SourceEntry{}}
	data, err := os.ReadFile(i.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", i.path, err)
	}
	if doc.Sources == nil {
		doc.Sources = map[string]SourceEntry{}
	}
	return doc, nil
}

func (i *SourceIndex) write(doc sourcesDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(i.path, data, 0o644)
}

// Get returns the recorded entry for name.
func (i *SourceIndex) Get(name string) (SourceEntry, bool, error) {
	doc, err := i.read()
	if err != nil {
		return SourceEntry{}, false, err
	}
	e, ok := doc.Sources[name]
	return e, ok, nil
}

// Set records uri as the source of name.
func (i *SourceIndex) Set(name, uri string) error {
	doc, err := i.read()
	if err != nil {
		return err
	}
	doc.Sources[name] = SourceEntry{URI: uri, LoadedAt: i.now().UTC()}
	return i.write(doc)
}

// Delete forgets name. Missing entries are ignored.
func (i *SourceIndex) Delete(name string) error {
	doc, err := i.read()
	if err != nil {
		return err
	}
	if _, ok := doc.Sources[name]; !ok {
		return nil
	}
	delete(doc.Sources, name)
	return i.write(doc)
}
