package acquire

import (
	stderrors "errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// NoSupportedMechanismError is returned when a package declares no
// installation mechanisms at all.
type NoSupportedMechanismError struct {
	Package string
}

func (e *NoSupportedMechanismError) Error() string {
	return fmt.Sprintf("package %s declares no installation mechanisms", e.Package)
}

func (e *NoSupportedMechanismError) Category() errors.ErrorCategory {
	return errors.CategoryAcquisition
}

// UnsupportedMechanismError is returned when mechanisms were declared but
// none of them can run with the current capabilities.
type UnsupportedMechanismError struct {
	Package   string
	Attempted []descriptor.MechanismKind
	Available []descriptor.MechanismKind
}

func (e *UnsupportedMechanismError) Error() string {
	avail := "none"
	if len(e.Available) > 0 {
		avail = joinKinds(e.Available)
	}
	return fmt.Sprintf("package %s could not be acquired: it uses %s but only %s are available",
		e.Package, joinKinds(e.Attempted), avail)
}

func (e *UnsupportedMechanismError) Category() errors.ErrorCategory {
	return errors.CategoryAcquisition
}

// Attempt records one mechanism that ran and failed.
type Attempt struct {
	Mechanism descriptor.Mechanism
	Err       error
}

// FailedError is returned when every supported mechanism ran and failed.
// Unavailable lists declared mechanisms that were skipped for lack of
// capability.
type FailedError struct {
	Package     string
	Attempts    []Attempt
	Unavailable []descriptor.MechanismKind
}

func (e *FailedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s): %v", a.Mechanism.Kind, a.Mechanism.URI, a.Err)
	}
	msg := fmt.Sprintf("package %s could not be acquired: %s", e.Package, strings.Join(parts, "; "))
	if len(e.Unavailable) > 0 {
		msg += fmt.Sprintf(" (also declared but unavailable: %s)", joinKinds(e.Unavailable))
	}
	return msg
}

func (e *FailedError) Unwrap() []error {
	out := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Err
	}
	return out
}

func (e *FailedError) Category() errors.ErrorCategory { return errors.CategoryAcquisition }

func joinKinds(kinds []descriptor.MechanismKind) string {
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}

var errUnknownKind = stderrors.New("unknown mechanism kind")
