// Package commands implements the mcm command line.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mcm/internal/config"
	"git.home.luguber.info/inful/mcm/internal/observability"
	"git.home.luguber.info/inful/mcm/internal/render"
)

// Global carries state shared by every subcommand.
type Global struct {
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config

	app *App
}

// NewGlobal returns a Global writing to stdout and stderr.
func NewGlobal(stdout, stderr io.Writer) *Global {
	return &Global{Stdout: stdout, Stderr: stderr}
}

// App builds the application on first use.
func (g *Global) App() (*App, error) {
	if g.app != nil {
		return g.app, nil
	}
	app, err := NewApp(g.Config)
	if err != nil {
		return nil, err
	}
	g.app = app
	return app, nil
}

// Printer renders to stdout.
func (g *Global) Printer() *render.Printer { return render.New(g.Stdout) }

// Close releases whatever App opened.
func (g *Global) Close() {
	if g.app != nil {
		g.app.Close()
		g.app = nil
	}
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"${default_config}" env:"MCM_CONFIG" type:"path"`
	DataDir   string           `name:"data-dir" short:"d" help:"The mcm data directory" env:"MCM_DATA_DIR" type:"path" placeholder:"MCM_DIR"`
	CacheDir  string           `name:"cache-dir" help:"Directory holding the state cache and history" env:"MCM_CACHE_DIR" type:"path"`
	TargetDir string           `name:"target-dir" short:"t" help:"Target directory; nothing is installed outside it" env:"MCM_TARGET_DIR" type:"path" placeholder:"TARGET"`
	Hostname  string           `short:"B" help:"Override the hostname used to pick host-specific files" env:"MCM_HOSTNAME" placeholder:"NAME"`
	Tags      []string         `name:"tag" short:"T" help:"Tag to enable for the underlying configurations (repeatable)" env:"MCM_TAGS" placeholder:"TAG"`
	Verbose   int              `short:"v" type:"counter" help:"Increase verbosity (-v info, -vv debug)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Load    LoadCmd    `cmd:"" help:"Load new meta-packages"`
	Unload  UnloadCmd  `cmd:"" help:"Remove every package of a meta-package and unload it"`
	Install InstallCmd `cmd:"" help:"Acquire and install packages"`
	Remove  RemoveCmd  `cmd:"" help:"Uninstall and remove packages"`
	Update  UpdateCmd  `cmd:"" help:"Re-fetch meta-packages and reinstall installed packages"`
	List    ListCmd    `cmd:"" help:"List every package of every loaded meta-package"`
	Show    ShowCmd    `cmd:"" help:"Show one meta-package in detail"`
	History HistoryCmd `cmd:"" help:"Show journaled status transitions"`
	Repair  RepairCmd  `cmd:"" help:"Check the state cache or force package statuses"`
	Watch   WatchCmd   `cmd:"" help:"Keep meta-packages updated"`
}

// AfterApply runs after flag parsing: load configuration and set up logging once.
func (c *CLI) AfterApply(g *Global) error {
	_, explicit := os.LookupEnv("MCM_CONFIG")
	explicit = explicit || c.Config != DefaultConfigPath()
	cfg, err := config.Load(c.Config, explicit)
	if err != nil {
		return err
	}
	if err := cfg.Apply(config.Overrides{
		DataDir:   c.DataDir,
		CacheDir:  c.CacheDir,
		TargetDir: c.TargetDir,
		Hostname:  c.Hostname,
		Tags:      c.Tags,
		Verbosity: c.Verbose,
	}); err != nil {
		return err
	}
	g.Config = cfg

	stderr := g.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := observability.NewLogger(stderr, slogLevel(cfg.Logging.Level), cfg.Logging.Format == config.LogFormatJSON)
	slog.SetDefault(logger)
	slog.Debug("Configuration loaded", slog.String("config", cfg.String()))
	return nil
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/mcm/config.yaml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "mcm", "config.yaml")
}
