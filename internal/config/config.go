package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// Config is the mcm configuration file format.
type Config struct {
	DataDir      string             `yaml:"data_dir"`   // Descriptors and package content
	CacheDir     string             `yaml:"cache_dir"`  // cache.json, lock and history journal
	TargetDir    string             `yaml:"target_dir"` // Default materialization target
	Hostname     string             `yaml:"hostname,omitempty"`
	Tags         []string           `yaml:"tags,omitempty"`
	Installer    InstallerConfig    `yaml:"installer"`
	Fetch        FetchConfig        `yaml:"fetch"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Events       EventsConfig       `yaml:"events"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
	Watch        WatchConfig        `yaml:"watch"`
}

// InstallerConfig configures the scm subprocess.
type InstallerConfig struct {
	Binary  string `yaml:"binary"`
	Timeout string `yaml:"timeout"` // Go duration; "0" disables the deadline
}

// FetchConfig configures descriptor and archive downloads.
type FetchConfig struct {
	Timeout           string           `yaml:"timeout"`
	MaxBytes          int64            `yaml:"max_bytes"`
	MaxRetries        int              `yaml:"max_retries"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay string           `yaml:"retry_initial_delay"`
	RetryMaxDelay     string           `yaml:"retry_max_delay"`
}

// CapabilitiesConfig switches acquisition mechanisms on or off.
type CapabilitiesConfig struct {
	Archive *bool `yaml:"archive,omitempty"`
	VCS     *bool `yaml:"vcs,omitempty"`
}

// EventsConfig configures lifecycle event publishing.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// MetricsConfig configures the node-exporter textfile sink.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig configures the transition journal.
type HistoryConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Interval string `yaml:"interval"`
	Debounce string `yaml:"debounce"`
}

// Load reads the configuration at path. A missing file is only an error when
// required is set; otherwise defaults are returned.
func Load(path string, required bool) (*Config, error) {
	for _, f := range loadEnvFiles(envFileCandidates(path)) {
		slog.Debug("Loaded environment file", "path", f)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if uerr := yaml.Unmarshal([]byte(expanded), cfg); uerr != nil {
			return nil, errors.WrapError(uerr, errors.CategoryConfig, "failed to parse config file").
				WithContext("path", path).Fatal().Build()
		}
	case os.IsNotExist(err) && !required:
		slog.Debug("No configuration file, using defaults", "path", path)
	default:
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).Fatal().Build()
	}

	for _, w := range normalize(cfg) {
		slog.Warn("config normalization", "warning", w)
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to apply defaults").Fatal().Build()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration populated only with defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigsDir is the descriptor store directory.
func (c *Config) ConfigsDir() string { return joinPath(c.DataDir, "configs") }

// PackagesDir holds one content directory per meta.pkg.
func (c *Config) PackagesDir() string { return joinPath(c.DataDir, "packages") }

// CacheFile is the persisted status mapping.
func (c *Config) CacheFile() string { return joinPath(c.CacheDir, "cache.json") }

// HistoryFile is the SQLite transition journal.
func (c *Config) HistoryFile() string { return joinPath(c.CacheDir, "history.db") }

// ArchiveEnabled reports whether tar acquisition is available.
func (c *Config) ArchiveEnabled() bool { return boolOr(c.Capabilities.Archive, true) }

// VCSEnabled reports whether git acquisition is available.
func (c *Config) VCSEnabled() bool { return boolOr(c.Capabilities.VCS, true) }

// HistoryEnabled reports whether transitions are journaled.
func (c *Config) HistoryEnabled() bool { return boolOr(c.History.Enabled, true) }

// InstallerTimeout parses installer.timeout; zero means no deadline.
func (c *Config) InstallerTimeout() time.Duration { return mustDuration(c.Installer.Timeout) }

// FetchTimeout parses fetch.timeout.
func (c *Config) FetchTimeout() time.Duration { return mustDuration(c.Fetch.Timeout) }

// RetryInitialDelay parses fetch.retry_initial_delay.
func (c *Config) RetryInitialDelay() time.Duration { return mustDuration(c.Fetch.RetryInitialDelay) }

// RetryMaxDelay parses fetch.retry_max_delay.
func (c *Config) RetryMaxDelay() time.Duration { return mustDuration(c.Fetch.RetryMaxDelay) }

// WatchInterval parses watch.interval.
func (c *Config) WatchInterval() time.Duration { return mustDuration(c.Watch.Interval) }

// WatchDebounce parses watch.debounce.
func (c *Config) WatchDebounce() time.Duration { return mustDuration(c.Watch.Debounce) }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// mustDuration parses durations that Validate has already checked.
func mustDuration(s string) time.Duration {
	if s == "" || s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) String() string {
	return fmt.Sprintf("data=%s cache=%s target=%s", c.DataDir, c.CacheDir, c.TargetDir)
}
