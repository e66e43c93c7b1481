package lifecycle

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// AlreadyInstalledError is returned by install when a selected package is
// installed and the policy is to exit.
type AlreadyInstalledError struct {
	Meta, Package string
}

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("package %s.%s is already installed", e.Meta, e.Package)
}

func (e *AlreadyInstalledError) Category() errors.ErrorCategory { return errors.CategoryAlreadyExists }

// AlreadyAbsentError is returned by remove when a selected package is not
// installed and the policy is to exit.
type AlreadyAbsentError struct {
	Meta, Package string
}

func (e *AlreadyAbsentError) Error() string {
	return fmt.Sprintf("package %s.%s is not installed", e.Meta, e.Package)
}

func (e *AlreadyAbsentError) Category() errors.ErrorCategory { return errors.CategoryNotFound }

// NoValidTargetError is returned when a package lists target directories and
// none of them exists.
type NoValidTargetError struct {
	Meta, Package string
	Candidates    []string
}

func (e *NoValidTargetError) Error() string {
	return fmt.Sprintf("no valid target directory for package %s.%s (tried %s)",
		e.Meta, e.Package, strings.Join(e.Candidates, ", "))
}

func (e *NoValidTargetError) Category() errors.ErrorCategory { return errors.CategoryConfig }

// DependencyCycleError is returned when dependency resolution reaches a
// package that is already being resolved.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

func (e *DependencyCycleError) Category() errors.ErrorCategory { return errors.CategoryDependency }
