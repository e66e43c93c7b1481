package cache

import (
	"fmt"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// CorruptedError reports a cache state that violates the record invariants.
// It is never repaired implicitly.
type CorruptedError struct {
	Meta    string
	Package string
	Status  Status
	Reason  string
	Err     error
}

func (e *CorruptedError) Error() string {
	subject := "cache"
	if e.Meta != "" {
		subject = fmt.Sprintf("package %s.%s", e.Meta, e.Package)
	}
	msg := fmt.Sprintf("%s is corrupted: %s", subject, e.Reason)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg + "; run mcm repair"
}

func (e *CorruptedError) Unwrap() error { return e.Err }

func (e *CorruptedError) Category() errors.ErrorCategory { return errors.CategoryCache }

// InProgressError is raised when an operation starts on a package left in
// midinstall or midremove.
func InProgressError(meta, pkg string, s Status) *CorruptedError {
	return &CorruptedError{
		Meta:    meta,
		Package: pkg,
		Status:  s,
		Reason:  fmt.Sprintf("marked as %s; unless another mcm instance is running an earlier run was interrupted", s),
	}
}
