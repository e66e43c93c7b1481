// Package acquire materializes package content into a package directory using
// the first mechanism a package declares that the process can run.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/retry"
)

// Fetcher retrieves archive bytes.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Observer is told about every mechanism run. It may be nil.
type Observer interface {
	ObserveAcquisition(kind descriptor.MechanismKind, d time.Duration, err error)
}

// Acquirer runs acquisition mechanisms.
type Acquirer struct {
	caps     Capabilities
	fetcher  Fetcher
	policy   retry.Policy
	observer Observer
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithRetryPolicy retries clones that fail transiently. Archive fetches retry
// inside the fetcher.
func WithRetryPolicy(p retry.Policy) Option { return func(a *Acquirer) { a.policy = p } }

// WithObserver reports mechanism runs to o.
func WithObserver(o Observer) Option { return func(a *Acquirer) { a.observer = o } }

// New returns an Acquirer limited to caps.
func New(caps Capabilities, fetcher Fetcher, opts ...Option) *Acquirer {
	a := &Acquirer{caps: caps, fetcher: fetcher, policy: retry.DefaultPolicy()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Capabilities returns the capabilities the Acquirer was built with.
func (a *Acquirer) Capabilities() Capabilities { return a.caps }

// Acquire tries mechanisms in declared order and returns the one that
// succeeded. dir is created if missing and emptied after each failed attempt;
// on error it is left removed.
func (a *Acquirer) Acquire(ctx context.Context, name, dir string, mechanisms []descriptor.Mechanism) (descriptor.Mechanism, error) {
	if len(mechanisms) == 0 {
		return descriptor.Mechanism{}, &NoSupportedMechanismError{Package: name}
	}

	var (
		unsupported []descriptor.MechanismKind
		failed      []Attempt
	)
	for _, m := range mechanisms {
		if !a.caps.Supports(m.Kind) {
			slog.DebugContext(ctx, "Mechanism not available", logfields.Package(name), logfields.Mechanism(string(m.Kind)))
			unsupported = append(unsupported, m.Kind)
			continue
		}
		if err := resetDir(dir); err != nil {
			return descriptor.Mechanism{}, err
		}

		start := time.Now()
		err := a.run(ctx, dir, m)
		if a.observer != nil {
			a.observer.ObserveAcquisition(m.Kind, time.Since(start), err)
		}
		if err == nil {
			slog.InfoContext(ctx, "Acquired package", logfields.Package(name),
				logfields.Mechanism(string(m.Kind)), logfields.URI(m.URI), logfields.Path(dir))
			return m, nil
		}
		slog.WarnContext(ctx, "Mechanism failed", logfields.Package(name),
			logfields.Mechanism(string(m.Kind)), logfields.URI(m.URI), logfields.Error(err))
		failed = append(failed, Attempt{Mechanism: m, Err: err})
		if ctx.Err() != nil {
			break
		}
	}

	_ = os.RemoveAll(dir)
	if len(failed) > 0 {
		return descriptor.Mechanism{}, &FailedError{Package: name, Attempts: failed, Unavailable: unsupported}
	}
	return descriptor.Mechanism{}, &UnsupportedMechanismError{
		Package:   name,
		Attempted: unsupported,
		Available: a.caps.Available(),
	}
}

func (a *Acquirer) run(ctx context.Context, dir string, m descriptor.Mechanism) error {
	switch m.Kind {
	case descriptor.MechanismTar:
		return a.extract(ctx, dir, m.URI)
	case descriptor.MechanismGit:
		return a.policy.Do(ctx, "clone", func(ctx context.Context) error {
			if err := resetDir(dir); err != nil {
				return err
			}
			return clone(ctx, dir, m.URI)
		})
	default:
		return fmt.Errorf("%w: %s", errUnknownKind, m.Kind)
	}
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.FileSystemError("cannot clear package directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileSystemError("cannot create package directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	return nil
}
