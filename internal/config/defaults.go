package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultInstallerBinary   = "scm"
	DefaultInstallerTimeout  = "10m"
	DefaultFetchTimeout      = "30s"
	DefaultFetchMaxBytes     = 64 << 20
	DefaultRetryInitialDelay = "1s"
	DefaultRetryMaxDelay     = "30s"
	DefaultEventsSubject     = "mcm.lifecycle"
	DefaultWatchInterval     = "6h"
	DefaultWatchDebounce     = "2s"
)

// DefaultPath returns $XDG_CONFIG_HOME/mcm/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "mcm", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/mcm2, the historic data location.
func DefaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "mcm2")
}

// DefaultCacheDir returns $XDG_CACHE_HOME/mcm.
func DefaultCacheDir() string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), "mcm")
}

func xdgDir(env, homeRel string) string {
	if v := os.Getenv(env); v != "" && filepath.IsAbs(v) {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return homeRel
	}
	return filepath.Join(home, homeRel)
}

// applyDefaults fills every unset field. It is also safe to call after CLI
// overrides have been merged in.
func applyDefaults(cfg *Config) error {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	if cfg.TargetDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve default target dir: %w", err)
		}
		cfg.TargetDir = home
	}
	for _, p := range []*string{&cfg.DataDir, &cfg.CacheDir, &cfg.TargetDir} {
		abs, err := filepath.Abs(os.ExpandEnv(*p))
		if err != nil {
			return fmt.Errorf("resolve %q: %w", *p, err)
		}
		*p = abs
	}

	if cfg.Installer.Binary == "" {
		cfg.Installer.Binary = DefaultInstallerBinary
	}
	if cfg.Installer.Timeout == "" {
		cfg.Installer.Timeout = DefaultInstallerTimeout
	}

	if cfg.Fetch.Timeout == "" {
		cfg.Fetch.Timeout = DefaultFetchTimeout
	}
	if cfg.Fetch.MaxBytes <= 0 {
		cfg.Fetch.MaxBytes = DefaultFetchMaxBytes
	}
	if cfg.Fetch.MaxRetries < 0 {
		cfg.Fetch.MaxRetries = 0
	}
	if cfg.Fetch.RetryBackoff == "" {
		cfg.Fetch.RetryBackoff = RetryBackoffExponential
	}
	if cfg.Fetch.RetryInitialDelay == "" {
		cfg.Fetch.RetryInitialDelay = DefaultRetryInitialDelay
	}
	if cfg.Fetch.RetryMaxDelay == "" {
		cfg.Fetch.RetryMaxDelay = DefaultRetryMaxDelay
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventsSubject
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelWarn
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}

	if cfg.Watch.Interval == "" {
		cfg.Watch.Interval = DefaultWatchInterval
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	return nil
}
