// Package selection parses meta[.pattern] tokens and matches patterns against
// declared package names.
package selection

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// All selects every package of a meta-package.
const All = ".*"

// Selection identifies zero or more packages of one meta-package. A selection
// without a pattern means the meta-package itself, which is not the same as All.
type Selection struct {
	Meta       string
	Pattern    string
	HasPattern bool
}

// Packages builds a selection with a package pattern.
func Packages(meta, pattern string) Selection {
	return Selection{Meta: meta, Pattern: pattern, HasPattern: true}
}

// MetaOnly builds a selection naming just the meta-package.
func MetaOnly(meta string) Selection {
	return Selection{Meta: meta}
}

func (s Selection) String() string {
	if !s.HasPattern {
		return s.Meta
	}
	return s.Meta + "." + s.Pattern
}

// Parse splits a token on its first dot. The package component is optional.
func Parse(token string) (Selection, error) {
	meta, pattern, found := strings.Cut(strings.TrimSpace(token), ".")
	if meta == "" {
		return Selection{}, errors.ValidationError(fmt.Sprintf("invalid selection %q: missing meta-package name", token)).
			WithContext("token", token).Build()
	}
	if !found {
		return MetaOnly(meta), nil
	}
	if pattern == "" {
		return Selection{}, errors.ValidationError(fmt.Sprintf("invalid selection %q: empty package pattern", token)).
			WithContext("token", token).Build()
	}
	if _, err := compile(pattern); err != nil {
		return Selection{}, err
	}
	return Packages(meta, pattern), nil
}

// ParseQualified parses a token that must carry a package component.
func ParseQualified(token string) (Selection, error) {
	sel, err := Parse(token)
	if err != nil {
		return Selection{}, err
	}
	if !sel.HasPattern {
		return Selection{}, errors.ValidationError(
			fmt.Sprintf("invalid selection %q: must be fully qualified, i.e. META-PACKAGE.PACKAGE", token)).
			WithContext("token", token).Build()
	}
	return sel, nil
}

// ParseAll parses tokens in order, stopping at the first error.
func ParseAll(tokens []string, qualified bool) ([]Selection, error) {
	out := make([]Selection, 0, len(tokens))
	for _, tok := range tokens {
		parse := Parse
		if qualified {
			parse = ParseQualified
		}
		sel, err := parse(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// Resolve returns, in declaration order, the names that pattern matches in full.
func Resolve(pattern string, declared []string) ([]string, error) {
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range declared {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid package pattern %q", pattern)).
			WithCause(err).WithContext("pattern", pattern).Build()
	}
	return re, nil
}
