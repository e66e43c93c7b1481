package config

import (
	"fmt"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// Overrides carries command-line values that take precedence over the file.
type Overrides struct {
	DataDir   string
	CacheDir  string
	TargetDir string
	Hostname  string
	Tags      []string
	Verbosity int
}

// Apply merges non-empty overrides and re-resolves derived paths.
func (c *Config) Apply(o Overrides) error {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
	if o.TargetDir != "" {
		c.TargetDir = o.TargetDir
	}
	if o.Hostname != "" {
		c.Hostname = o.Hostname
	}
	if len(o.Tags) > 0 {
		c.Tags = append([]string(nil), o.Tags...)
	}
	// -v ladder: warn, info, debug
	switch {
	case o.Verbosity >= 2:
		c.Logging.Level = LogLevelDebug
	case o.Verbosity == 1:
		c.Logging.Level = LogLevelInfo
	}
	if err := applyDefaults(c); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to apply overrides").Fatal().Build()
	}
	return Validate(c)
}

// Validate checks that every duration parses and numeric bounds hold.
func Validate(cfg *Config) error {
	durations := map[string]string{
		"installer.timeout":         cfg.Installer.Timeout,
		"fetch.timeout":             cfg.Fetch.Timeout,
		"fetch.retry_initial_delay": cfg.Fetch.RetryInitialDelay,
		"fetch.retry_max_delay":     cfg.Fetch.RetryMaxDelay,
		"watch.interval":            cfg.Watch.Interval,
		"watch.debounce":            cfg.Watch.Debounce,
	}
	for field, raw := range durations {
		if raw == "" || raw == "0" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid duration for %s", field)).
				WithCause(err).WithContext("field", field).Build()
		}
		if d < 0 {
			return errors.ConfigError(fmt.Sprintf("%s cannot be negative", field)).
				WithContext("field", field).Build()
		}
	}
	if cfg.Fetch.MaxRetries < 0 {
		return errors.ConfigError("fetch.max_retries cannot be negative").Build()
	}
	if cfg.Installer.Binary == "" {
		return errors.ConfigError("installer.binary must be set").Build()
	}
	return nil
}

func joinPath(elem ...string) string { return filepath.Join(elem...) }
