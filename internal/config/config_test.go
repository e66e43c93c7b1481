package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingOptionalUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))

	cfg, err := Load(filepath.Join(home, "nope.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "mcm2"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, "cache", "mcm"), cfg.CacheDir)
	assert.Equal(t, home, cfg.TargetDir)
	assert.Equal(t, filepath.Join(home, "data", "mcm2", "configs"), cfg.ConfigsDir())
	assert.Equal(t, filepath.Join(home, "data", "mcm2", "packages"), cfg.PackagesDir())
	assert.Equal(t, filepath.Join(home, "cache", "mcm", "cache.json"), cfg.CacheFile())
	assert.Equal(t, "scm", cfg.Installer.Binary)
	assert.Equal(t, 10*time.Minute, cfg.InstallerTimeout())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 0, cfg.Fetch.MaxRetries)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.True(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.VCSEnabled())
	assert.True(t, cfg.HistoryEnabled())
}

func TestLoadMissingRequiredFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestLoadExpandsEnvAndNormalizes(t *testing.T) {
	root := t.TempDir()
	t.Setenv("MCM_TEST_ROOT", root)
	path := writeConfig(t, `
data_dir: ${MCM_TEST_ROOT}/data
cache_dir: ${MCM_TEST_ROOT}/cache
target_dir: ${MCM_TEST_ROOT}/home
hostname: " laptop "
tags: [work, " ", gui]
installer:
  binary: /usr/local/bin/scm
  timeout: "0"
fetch:
  max_retries: 3
  retry_backoff: LINEAR
capabilities:
  vcs: false
logging:
  level: " DEBUG"
  format: JSON
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(root, "cache"), cfg.CacheDir)
	assert.Equal(t, filepath.Join(root, "home"), cfg.TargetDir)
	assert.Equal(t, "laptop", cfg.Hostname)
	assert.Equal(t, []string{"work", "gui"}, cfg.Tags)
	assert.Equal(t, "/usr/local/bin/scm", cfg.Installer.Binary)
	assert.Equal(t, time.Duration(0), cfg.InstallerTimeout())
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, RetryBackoffLinear, cfg.Fetch.RetryBackoff)
	assert.True(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.VCSEnabled())
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "installer:\n  timeout: soon\n")
	_, err := Load(path, true)
	require.Error(t, err)
	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	field, _ := classified.Context().Get("field")
	assert.Equal(t, "installer.timeout", field)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "data_dir: [unterminated\n")
	_, err := Load(path, true)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Default()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, cfg.Apply(Overrides{
		DataDir:   filepath.Join(dir, "d"),
		TargetDir: filepath.Join(dir, "t"),
		Hostname:  "box",
		Tags:      []string{"a", "b"},
		Verbosity: 1,
	}))
	assert.Equal(t, filepath.Join(dir, "d"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "t"), cfg.TargetDir)
	assert.Equal(t, "box", cfg.Hostname)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)

	require.NoError(t, cfg.Apply(Overrides{Verbosity: 5}))
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
}

func TestEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MCM_TEST_FROM_FILE=file\nMCM_TEST_PRESET=file\n"), 0o600))
	t.Setenv("MCM_TEST_PRESET", "env")
	t.Setenv("MCM_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("MCM_TEST_FROM_FILE"))

	loaded := loadEnvFiles([]string{filepath.Join(dir, ".env"), filepath.Join(dir, "missing.env")})
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, loaded)
	assert.Equal(t, "file", os.Getenv("MCM_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("MCM_TEST_PRESET"))
}

func TestNormalizeUnknownEnumsWarn(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "loud", Format: "xml"},
		Fetch:   FetchConfig{RetryBackoff: "random"},
	}
	warnings := normalize(cfg)
	assert.Len(t, warnings, 3)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, RetryBackoffExponential, cfg.Fetch.RetryBackoff)
}
