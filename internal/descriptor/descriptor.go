// Package descriptor implements the on-disk store of meta-package descriptors.
//
// A descriptor is a TOML document naming a meta-package and declaring its
// packages. Each package lists installation mechanisms, dependency references
// and candidate target directories:
//
//	name = "dots"
//
//	[packages.vim]
//	target = ["$HOME"]
//	dependencies = [{ meta-package = "dots", package-regex = "^base$" }]
//
//	[packages.vim.installation-mechanisms.tar]
//	uri = "https://example.com/vim.tar.gz"
//
// Packages and mechanisms keep the order they are declared in.
package descriptor

import "fmt"

// MechanismKind is the closed set of acquisition mechanisms.
type MechanismKind string

const (
	MechanismTar MechanismKind = "tar"
	MechanismGit MechanismKind = "git"
)

// ParseMechanismKind rejects anything outside the known kinds.
func ParseMechanismKind(raw string) (MechanismKind, error) {
	switch MechanismKind(raw) {
	case MechanismTar, MechanismGit:
		return MechanismKind(raw), nil
	default:
		return "", fmt.Errorf("unknown installation mechanism %q", raw)
	}
}

// Descriptor is a parsed meta-package document.
type Descriptor struct {
	Name        string
	URI         string // optional upstream location declared by the document
	Description string
	Packages    []Package
	Path        string // backing file in the store; empty until stored
}

// Package is a named, independently installable unit.
type Package struct {
	Name         string
	Mechanisms   []Mechanism
	Dependencies []Dependency
	Targets      []string
}

// Mechanism is one way to acquire package content.
type Mechanism struct {
	Kind MechanismKind
	URI  string
}

// Dependency references packages of a (possibly different) meta-package.
type Dependency struct {
	Meta    string
	Pattern string
}

// Package returns the named package.
func (d *Descriptor) Package(name string) (Package, bool) {
	for _, p := range d.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// PackageNames returns package names in declaration order.
func (d *Descriptor) PackageNames() []string {
	names := make([]string, len(d.Packages))
	for i, p := range d.Packages {
		names[i] = p.Name
	}
	return names
}

// FullName is the meta.pkg token used for content dirs and the installer.
func FullName(meta, pkg string) string { return meta + "." + pkg }
