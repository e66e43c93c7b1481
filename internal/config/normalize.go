package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mcm/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewEnumNormalizer("logging.level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelWarn)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewEnumNormalizer("logging.format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// RetryBackoffMode enumerates supported backoff strategies for fetch retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewEnumNormalizer("fetch.retry_backoff", map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffExponential)

func NormalizeLogLevel(raw string) LogLevel { return logLevelNormalizer.Normalize(raw) }

func NormalizeLogFormat(raw string) LogFormat { return logFormatNormalizer.Normalize(raw) }

func NormalizeRetryBackoff(raw string) RetryBackoffMode { return retryBackoffNormalizer.Normalize(raw) }

// normalize case-folds enumerations and trims paths. Unknown enum values fall
// back to their defaults and produce a warning.
func normalize(cfg *Config) []string {
	var warnings []string

	if cfg.Logging.Level != "" {
		res := logLevelNormalizer.NormalizeWithWarning("logging.level", string(cfg.Logging.Level))
		if !logLevelNormalizer.IsValid(string(cfg.Logging.Level)) {
			warnings = append(warnings, fmt.Sprintf("unknown logging.level %q, using %s", cfg.Logging.Level, res.Value))
		} else if res.Changed {
			warnings = append(warnings, res.Warning)
		}
		cfg.Logging.Level = res.Value
	}
	if cfg.Logging.Format != "" {
		if !logFormatNormalizer.IsValid(string(cfg.Logging.Format)) {
			warnings = append(warnings, fmt.Sprintf("unknown logging.format %q, using text", cfg.Logging.Format))
		}
		cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	}
	if cfg.Fetch.RetryBackoff != "" {
		if !retryBackoffNormalizer.IsValid(string(cfg.Fetch.RetryBackoff)) {
			warnings = append(warnings, fmt.Sprintf("unknown fetch.retry_backoff %q, using exponential", cfg.Fetch.RetryBackoff))
		}
		cfg.Fetch.RetryBackoff = NormalizeRetryBackoff(string(cfg.Fetch.RetryBackoff))
	}

	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.CacheDir = strings.TrimSpace(cfg.CacheDir)
	cfg.TargetDir = strings.TrimSpace(cfg.TargetDir)
	cfg.Hostname = strings.TrimSpace(cfg.Hostname)

	tags := cfg.Tags[:0]
	for _, t := range cfg.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	cfg.Tags = tags
	return warnings
}
