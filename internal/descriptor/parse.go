package descriptor

import (
	"math"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml"
)

// Parse decodes and validates a descriptor document.
func Parse(data []byte) (*Descriptor, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	doc, why, err := validateDocument(tree.ToMap())
	if err != nil {
		return nil, &ValidationError{Reasons: why, Err: err}
	}

	d := &Descriptor{
		Name:        str(doc["name"]),
		URI:         str(doc["uri"]),
		Description: str(doc["description"]),
	}

	pkgs, _ := doc["packages"].(map[string]any)
	for _, name := range declared(tree, []string{"packages"}, pkgs) {
		p, err := buildPackage(tree, name, pkgs[name])
		if err != nil {
			return nil, err
		}
		d.Packages = append(d.Packages, p)
	}
	return d, nil
}

func buildPackage(tree *toml.Tree, name string, raw any) (Package, error) {
	p := Package{Name: name}
	def, _ := raw.(map[string]any)

	mechs, _ := def["installation-mechanisms"].(map[string]any)
	for _, kind := range declared(tree, []string{"packages", name, "installation-mechanisms"}, mechs) {
		k, err := ParseMechanismKind(kind)
		if err != nil {
			return Package{}, &ValidationError{Reasons: []string{"/packages/" + name + ": " + err.Error()}, Err: err}
		}
		spec, _ := mechs[kind].(map[string]any)
		p.Mechanisms = append(p.Mechanisms, Mechanism{Kind: k, URI: str(spec["uri"])})
	}

	deps, _ := def["dependencies"].([]any)
	for _, raw := range deps {
		dep, _ := raw.(map[string]any)
		pattern := str(dep["package-regex"])
		if _, err := regexp.Compile(pattern); err != nil {
			return Package{}, &ValidationError{
				Reasons: []string{"/packages/" + name + "/dependencies: " + err.Error()},
				Err:     err,
			}
		}
		p.Dependencies = append(p.Dependencies, Dependency{Meta: str(dep["meta-package"]), Pattern: pattern})
	}

	targets, _ := def["target"].([]any)
	for _, t := range targets {
		p.Targets = append(p.Targets, str(t))
	}
	return p, nil
}

// declared returns the keys of m ordered by where they appear in the source.
// Keys without a recorded position (inline tables) sort last, by name.
func declared(tree *toml.Tree, path []string, m map[string]any) []string {
	type keyed struct {
		name      string
		line, col int
	}
	keys := make([]keyed, 0, len(m))
	for k := range m {
		line, col := earliest(tree, append(append([]string(nil), path...), k))
		keys = append(keys, keyed{k, line, col})
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.line != b.line {
			return a.line < b.line
		}
		if a.col != b.col {
			return a.col < b.col
		}
		return a.name < b.name
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	return out
}

// earliest finds the first source position recorded at or below path.
func earliest(tree *toml.Tree, path []string) (int, int) {
	if pos := tree.GetPositionPath(path); pos.Line > 0 {
		return pos.Line, pos.Col
	}
	sub, ok := tree.GetPath(path).(*toml.Tree)
	if !ok {
		return math.MaxInt, math.MaxInt
	}
	line, col := math.MaxInt, math.MaxInt
	for _, k := range sub.Keys() {
		l, c := earliest(sub, []string{k})
		if l < line || (l == line && c < col) {
			line, col = l, c
		}
	}
	return line, col
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
