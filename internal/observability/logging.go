// Package observability carries per-run logging context and builds the
// process logger.
package observability

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	RunID     string
	Operation string
	Meta      string
	Package   string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRun tags ctx with the run ID and operation of a lifecycle run.
func WithRun(ctx context.Context, runID, operation string) context.Context {
	lc := extractLogContext(ctx)
	lc.RunID = runID
	lc.Operation = operation
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPackage tags ctx with the package being worked on.
func WithPackage(ctx context.Context, meta, pkg string) context.Context {
	lc := extractLogContext(ctx)
	lc.Meta = meta
	lc.Package = pkg
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from ctx.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr
	if lc.RunID != "" {
		attrs = append(attrs, slog.String(logfields.KeyRunID, lc.RunID))
	}
	if lc.Operation != "" {
		attrs = append(attrs, slog.String(logfields.KeyOperation, lc.Operation))
	}
	if lc.Meta != "" {
		attrs = append(attrs, slog.String(logfields.KeyMeta, lc.Meta))
	}
	if lc.Package != "" {
		attrs = append(attrs, slog.String(logfields.KeyPackage, lc.Package))
	}
	return attrs
}

// ContextHandler adds the LogContext of the record's context to every record.
// Attributes already present on the record win.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := getLogAttrs(ctx)
	if len(attrs) == 0 {
		return h.inner.Handle(ctx, r)
	}
	present := map[string]bool{}
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = true
		return true
	})
	for _, a := range attrs {
		if !present[a.Key] {
			r.AddAttrs(a)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

// NewLogger builds the process logger: JSON or text to w at level.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if json {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewContextHandler(inner))
}
