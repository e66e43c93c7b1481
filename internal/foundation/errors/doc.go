// Package errors provides foundational, type-safe error primitives used across mcm.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (validation, cache, installer, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - Categorized: interface satisfied by typed domain errors in other packages
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryGit, "clone failed").
//		WithContext("uri", repoURI).
//		WithCause(originalErr).
//		Build()
package errors
