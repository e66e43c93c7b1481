package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyMeta       = "meta_package"
	KeyPackage    = "package"
	KeyStatus     = "status"
	KeyFrom       = "from"
	KeyTo         = "to"
	KeyPath       = "path"
	KeyURI        = "uri"
	KeyMechanism  = "mechanism"
	KeyRunID      = "run_id"
	KeyOperation  = "operation"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyAttempt    = "attempt"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Meta(name string) slog.Attr       { return slog.String(KeyMeta, name) }
func Package(name string) slog.Attr    { return slog.String(KeyPackage, name) }
func Status(s string) slog.Attr        { return slog.String(KeyStatus, s) }
func From(s string) slog.Attr          { return slog.String(KeyFrom, s) }
func To(s string) slog.Attr            { return slog.String(KeyTo, s) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func URI(u string) slog.Attr           { return slog.String(KeyURI, u) }
func Mechanism(kind string) slog.Attr  { return slog.String(KeyMechanism, kind) }
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Operation(op string) slog.Attr    { return slog.String(KeyOperation, op) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
