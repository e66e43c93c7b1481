package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/moby/go-archive"
	"github.com/moby/go-archive/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

type env struct {
	root       string
	config     string
	target     string
	scmLog     string
	descriptor string
	textfile   string
}

// newEnv lays out a config, a fake scm and a descriptor with one tar package.
func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		root:     root,
		config:   filepath.Join(root, "config.yaml"),
		target:   filepath.Join(root, "home"),
		scmLog:   filepath.Join(root, "scm.log"),
		textfile: filepath.Join(root, "metrics", "mcm.prom"),
	}
	require.NoError(t, os.MkdirAll(e.target, 0o755))

	scm := filepath.Join(root, "scm")
	body := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\nexit ${FAKE_SCM_EXIT:-0}\n", e.scmLog)
	require.NoError(t, os.WriteFile(scm, []byte(body), 0o755))

	content := filepath.Join(root, "content")
	require.NoError(t, os.MkdirAll(content, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(content, ".vimrc"), []byte("set number\n"), 0o600))
	rc, err := archive.Tar(content, compression.Gzip)
	require.NoError(t, err)
	tarPath := filepath.Join(root, "vim.tar.gz")
	f, err := os.Create(tarPath)
	require.NoError(t, err)
	_, err = io.Copy(f, rc)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, rc.Close())

	e.descriptor = filepath.Join(root, "dots.toml")
	doc := fmt.Sprintf(`name = "dots"
description = "My **dotfiles**."

[packages.vim.installation-mechanisms.tar]
uri = %q
`, fetch.FileURI(tarPath))
	require.NoError(t, os.WriteFile(e.descriptor, []byte(doc), 0o600))

	cfg := fmt.Sprintf(`data_dir: %s
cache_dir: %s
target_dir: %s
installer:
  binary: %s
metrics:
  textfile: %s
`, filepath.Join(root, "data"), filepath.Join(root, "cache"), e.target, scm, e.textfile)
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var cli CLI
	var stdout, stderr bytes.Buffer
	g := NewGlobal(&stdout, &stderr)
	parser, err := kong.New(&cli,
		kong.Name("mcm"),
		kong.Vars{"version": "test", "default_config": filepath.Join(e.root, "absent.yaml")},
		kong.Bind(g),
		kong.BindTo(t.Context(), (*context.Context)(nil)),
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d: %s", code, stderr.String()) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(append([]string{"--config", e.config}, args...))
	if err != nil {
		return "", err
	}
	err = kctx.Run(g, &cli)
	g.Close()
	return stdout.String(), err
}

func exitCode(err error) int {
	return errors.NewCLIErrorAdapter(false, slog.Default()).ExitCodeFor(err)
}

func TestLifecycleThroughCLI(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "load", e.descriptor)
	require.NoError(t, err)
	assert.Equal(t, "loaded dots\n", out)

	out, err = e.run(t, "install", "dots.vim")
	require.NoError(t, err)
	assert.Contains(t, out, "dots.vim: notloaded -> loaded (tar)")
	assert.Contains(t, out, "dots.vim: midinstall -> installed")

	logged, err := os.ReadFile(e.scmLog)
	require.NoError(t, err)
	assert.Contains(t, string(logged), fmt.Sprintf("-f -y -t %s -d %s install dots.vim",
		e.target, filepath.Join(e.root, "data", "packages")))

	out, err = e.run(t, "list", "--json")
	require.NoError(t, err)
	var listed []listedMeta
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "dots", listed[0].Name)
	assert.Equal(t, []listedPackage{{Name: "vim", Status: "installed", TargetDir: e.target}}, listed[0].Packages)

	out, err = e.run(t, "show", "dots")
	require.NoError(t, err)
	assert.Contains(t, out, "My dotfiles.")
	assert.Contains(t, out, "source: "+fetch.FileURI(e.descriptor))

	out, err = e.run(t, "history", "dots.vim")
	require.NoError(t, err)
	assert.Contains(t, out, "install  dots.vim: midinstall -> installed")

	out, err = e.run(t, "repair")
	require.NoError(t, err)
	assert.Equal(t, "cache is consistent\n", out)

	out, err = e.run(t, "remove", "dots.vim")
	require.NoError(t, err)
	assert.Contains(t, out, "dots.vim: loaded -> notloaded")
	assert.NoDirExists(t, filepath.Join(e.root, "data", "packages", "dots.vim"))

	metrics, err := os.ReadFile(e.textfile)
	require.NoError(t, err)
	// The textfile holds the metrics of the last invocation.
	assert.Contains(t, string(metrics), `mcm_transitions_total{from="midremove",to="loaded"} 1`)
}

func TestInstallerFailureNeedsRepair(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "load", e.descriptor)
	require.NoError(t, err)

	t.Setenv("FAKE_SCM_EXIT", "1")
	_, err = e.run(t, "install", "dots")
	require.Error(t, err)
	assert.Equal(t, 9, exitCode(err))

	out, err := e.run(t, "repair")
	require.Error(t, err)
	assert.Equal(t, 6, exitCode(err))
	assert.Contains(t, out, "in_progress dots.vim")

	_, err = e.run(t, "install", "dots.vim")
	require.Error(t, err)
	assert.Equal(t, 6, exitCode(err))

	_, err = e.run(t, "repair", "--as", "loaded", "dots.vim")
	require.NoError(t, err)
	out, err = e.run(t, "repair")
	require.NoError(t, err)
	assert.Equal(t, "cache is consistent\n", out)
}

func TestUnknownMetaPackage(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "load", e.descriptor)
	require.NoError(t, err)

	_, err = e.run(t, "install", "dot.vim")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
	assert.Contains(t, err.Error(), "did you mean dots?")
}

func TestInvalidSelection(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "install", ".vim")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestRepairFlagValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "repair", "dots.vim")
	require.Error(t, err)
	_, err = e.run(t, "repair", "--as", "loaded")
	require.Error(t, err)
	_, err = e.run(t, "repair", "--rebuild", "dots.vim")
	require.Error(t, err)
	_, err = e.run(t, "repair", "--as", "loaded", "dots")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "must be fully qualified")
}

func TestHistoryDisabled(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.config, append(mustRead(t, e.config), []byte("history:\n  enabled: false\n")...), 0o600))
	_, err := e.run(t, "history")
	require.Error(t, err)
	assert.Equal(t, 7, exitCode(err))
}

func TestMissingExplicitConfig(t *testing.T) {
	e := newEnv(t)
	e.config = filepath.Join(e.root, "nope.yaml")
	_, err := e.run(t, "list")
	require.Error(t, err)
	assert.Equal(t, 7, exitCode(err))
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	assert.Equal(t, "/cfg/mcm/config.yaml", DefaultConfigPath())
}
