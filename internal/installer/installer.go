// Package installer drives the external scm tool, the only component that
// touches the target directory.
package installer

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// Action is the scm subcommand.
type Action string

const (
	ActionInstall Action = "install"
	ActionRemove  Action = "remove"
)

// Request identifies one package and where it goes.
type Request struct {
	Meta        string
	Package     string
	TargetDir   string
	PackagesDir string
	Hostname    string
	Tags        []string
}

// Bridge installs and removes materialized packages.
type Bridge interface {
	Install(ctx context.Context, req Request) error
	Remove(ctx context.Context, req Request) error
}

// ErrBinaryNotFound is returned when the scm binary cannot be located.
var ErrBinaryNotFound = stderrors.New("installer binary not found")

// ToolError reports a non-zero scm exit.
type ToolError struct {
	Action   Action
	Package  string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("scm %s %s exited with code %d", e.Action, e.Package, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Category() errors.ErrorCategory { return errors.CategoryInstaller }

// SCM runs the scm binary.
type SCM struct {
	Binary  string
	Timeout time.Duration // zero disables the limit
	Stdout  io.Writer     // optional copy of scm stdout
}

// NewSCM returns a bridge for binary.
func NewSCM(binary string, timeout time.Duration) *SCM {
	return &SCM{Binary: binary, Timeout: timeout}
}

func (s *SCM) Install(ctx context.Context, req Request) error {
	return s.run(ctx, ActionInstall, req)
}

func (s *SCM) Remove(ctx context.Context, req Request) error {
	return s.run(ctx, ActionRemove, req)
}

// Args builds the scm argument list for action.
func Args(action Action, req Request) []string {
	args := []string{"-f", "-y", "-t", req.TargetDir, "-d", req.PackagesDir}
	if req.Hostname != "" {
		args = append(args, "-B", req.Hostname)
	}
	for _, tag := range req.Tags {
		args = append(args, "-T", tag)
	}
	return append(args, string(action), req.Meta+"."+req.Package)
}

func (s *SCM) run(ctx context.Context, action Action, req Request) error {
	path, err := exec.LookPath(s.Binary)
	if err != nil {
		return errors.NewError(errors.CategoryInstaller, "scm is not installed").
			WithCause(fmt.Errorf("%w: %w", ErrBinaryNotFound, err)).
			WithContext("binary", s.Binary).Fatal().Build()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	full := req.Meta + "." + req.Package
	args := Args(action, req)
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if s.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, s.Stdout)
	}
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "Running installer", logfields.Package(full), logfields.Operation(string(action)),
		slog.String("args", strings.Join(args, " ")))
	start := time.Now()
	err = cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		slog.DebugContext(ctx, "scm stdout", logfields.Package(full), slog.String("output", out))
	}
	errOut := strings.TrimSpace(stderr.String())
	if errOut != "" {
		slog.WarnContext(ctx, "scm stderr", logfields.Package(full), slog.String("error_output", errOut))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && ctx.Err() == nil {
			return &ToolError{Action: action, Package: full, ExitCode: exitErr.ExitCode(), Stderr: lastLine(errOut)}
		}
		return errors.NewError(errors.CategoryInstaller, fmt.Sprintf("scm %s %s did not complete", action, full)).
			WithCause(err).WithContext("package", full).Build()
	}
	slog.InfoContext(ctx, "Installer finished", logfields.Package(full), logfields.Operation(string(action)),
		logfields.Duration(time.Since(start)))
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
