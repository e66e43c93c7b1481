package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer maps free-form strings onto a closed set of enum values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string // sorted, for error messages
	clean        Func
}

// Func is a string cleaning step applied to keys and input alike.
type Func func(string) string

// NewNormalizer creates a normalizer using case-folding and whitespace trimming.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	return WithCustomNormalizer(values, defaultValue, defaultNormalization)
}

// WithCustomNormalizer creates a normalizer with a custom cleaning function.
func WithCustomNormalizer[T comparable](values map[string]T, defaultValue T, clean Func) *Normalizer[T] {
	n := &Normalizer[T]{
		values:       make(map[string]T, len(values)),
		defaultValue: defaultValue,
		keys:         make([]string, 0, len(values)),
		clean:        clean,
	}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	sort.Strings(n.keys)
	return n
}

// Normalize returns the matching value or the default.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[n.clean(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError returns an error listing the valid keys on a miss.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[n.clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// Known reports whether raw maps to a value without falling back.
func (n *Normalizer[T]) Known(raw string) bool {
	_, ok := n.values[n.clean(raw)]
	return ok
}

// ValidKeys returns a copy of the sorted keys.
func (n *Normalizer[T]) ValidKeys() []string {
	return append([]string(nil), n.keys...)
}

func defaultNormalization(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
