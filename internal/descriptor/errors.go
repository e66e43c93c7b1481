package descriptor

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// ValidationError reports a document that is not a valid descriptor.
type ValidationError struct {
	Source  string
	Reasons []string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid meta-package descriptor")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	if len(e.Reasons) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Reasons, "; "))
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Category() errors.ErrorCategory { return errors.CategoryValidation }

// NotLoadedError reports an operation on a meta-package that is not loaded.
type NotLoadedError struct {
	Name        string
	Suggestions []string
}

func (e *NotLoadedError) Error() string {
	msg := fmt.Sprintf("meta-package %q is not loaded", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NotLoadedError) Category() errors.ErrorCategory { return errors.CategoryNotFound }

// Diagnostic is a non-fatal problem found while scanning the store.
type Diagnostic struct {
	Path string
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("skipping %s: %v", d.Path, d.Err)
}
