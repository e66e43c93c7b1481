package lifecycle

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/mcm/internal/cache"
)

// Operation names a lifecycle entry point.
type Operation string

const (
	OpLoad    Operation = "load"
	OpUnload  Operation = "unload"
	OpInstall Operation = "install"
	OpRemove  Operation = "remove"
	OpUpdate  Operation = "update"
	OpList    Operation = "list"
	OpRepair  Operation = "repair"
)

// Transition is one persisted status change.
type Transition struct {
	RunID     string
	Operation Operation
	Meta      string
	Package   string
	From      cache.Status
	To        cache.Status
	Mechanism string // set when the transition followed an acquisition
	At        time.Time
}

// Warning is a condition the operation tolerated and continued past.
type Warning struct {
	Meta    string
	Package string
	Message string
}

func (w Warning) String() string {
	switch {
	case w.Package != "":
		return fmt.Sprintf("%s.%s: %s", w.Meta, w.Package, w.Message)
	case w.Meta != "":
		return fmt.Sprintf("%s: %s", w.Meta, w.Message)
	default:
		return w.Message
	}
}

// Report summarizes one operation. Partial progress is reported even when the
// operation fails.
type Report struct {
	RunID       string
	Operation   Operation
	Transitions []Transition
	Warnings    []Warning
	Loaded      []string // meta-packages stored by load or update
	Unloaded    []string
	Started     time.Time
	Finished    time.Time
}

func (r *Report) warn(meta, pkg, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Meta: meta, Package: pkg, Message: fmt.Sprintf(format, args...)})
}

// Duration is the wall time of the operation.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Observer is notified of every persisted transition and every finished
// operation. Implementations must not fail the operation.
type Observer interface {
	ObserveTransition(ctx context.Context, t Transition)
	ObserveRun(ctx context.Context, r *Report, err error)
}
