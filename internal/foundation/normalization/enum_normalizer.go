package normalization

import "fmt"

// EnumNormalizer wraps a Normalizer with a field name for config diagnostics.
type EnumNormalizer[T comparable] struct {
	normalizer *Normalizer[T]
	enumName   string
}

// NewEnumNormalizer creates an enum normalizer with descriptive error messages.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{
		normalizer: NewNormalizer(values, defaultValue),
		enumName:   enumName,
	}
}

func (e *EnumNormalizer[T]) Normalize(raw string) T {
	return e.normalizer.Normalize(raw)
}

// NormalizeWithValidation fails on unknown input instead of defaulting.
func (e *EnumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	result, err := e.normalizer.NormalizeWithError(raw)
	if err != nil {
		return result, fmt.Errorf("invalid %s: %w", e.enumName, err)
	}
	return result, nil
}

// IsValid reports whether raw names a known value.
func (e *EnumNormalizer[T]) IsValid(raw string) bool {
	return e.normalizer.Known(raw)
}

func (e *EnumNormalizer[T]) ValidValues() []string {
	return e.normalizer.ValidKeys()
}

// NormalizationResult is a normalized value plus an optional rewrite warning.
type NormalizationResult[T comparable] struct {
	Value   T
	Changed bool
	Warning string
}

// NormalizeWithWarning reports when the cleaned input differs from raw.
func (e *EnumNormalizer[T]) NormalizeWithWarning(fieldName, raw string) NormalizationResult[T] {
	cleaned := e.normalizer.clean(raw)
	res := NormalizationResult[T]{Value: e.normalizer.Normalize(raw), Changed: cleaned != raw}
	if res.Changed {
		res.Warning = fmt.Sprintf("normalized %s from '%s' to '%s'", fieldName, raw, cleaned)
	}
	return res
}
