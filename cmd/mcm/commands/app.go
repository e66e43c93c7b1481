package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/mcm/internal/acquire"
	"git.home.luguber.info/inful/mcm/internal/cache"
	"git.home.luguber.info/inful/mcm/internal/config"
	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/events"
	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/history"
	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/metrics"
	"git.home.luguber.info/inful/mcm/internal/retry"
)

// App is the wired lifecycle engine with its optional sinks.
type App struct {
	Config  *config.Config
	Engine  *lifecycle.Engine
	History *history.Store // nil when the journal is disabled or unavailable

	emitter *events.Emitter
	prom    *metrics.PrometheusRecorder
}

// NewApp wires every component from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.InternalError("configuration not loaded").Build()
	}
	app := &App{Config: cfg}

	policy := retry.FromConfig(cfg)
	fetcher := fetch.New(cfg.FetchTimeout(), fetch.WithMaxBytes(cfg.Fetch.MaxBytes), fetch.WithRetryPolicy(policy))

	store, err := descriptor.NewStore(cfg.ConfigsDir(), fetcher)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(cfg.CacheDir, cfg.PackagesDir())
	if err != nil {
		return nil, err
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Textfile != "" {
		app.prom = metrics.NewPrometheusRecorder(nil)
		rec = app.prom
	}

	acq := acquire.New(
		acquire.Capabilities{Archive: cfg.ArchiveEnabled(), VCS: cfg.VCSEnabled()},
		fetcher,
		acquire.WithRetryPolicy(policy),
		acquire.WithObserver(rec),
	)
	bridge := metrics.InstrumentBridge(installer.NewSCM(cfg.Installer.Binary, cfg.InstallerTimeout()), rec)

	observers := []lifecycle.Observer{metrics.NewObserver(rec)}
	if cfg.HistoryEnabled() {
		hs, err := history.Open(cfg.HistoryFile())
		if err != nil {
			slog.Warn("History journal unavailable", logfields.Path(cfg.HistoryFile()), logfields.Error(err))
		} else {
			app.History = hs
			observers = append(observers, history.NewRecorder(hs))
		}
	}
	if cfg.Events.NATSURL != "" {
		em, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("Lifecycle events disabled", logfields.Error(err))
		} else {
			app.emitter = em
			observers = append(observers, em)
		}
	}

	app.Engine = lifecycle.New(store, c, acq, bridge, lifecycle.Settings{
		TargetDir: cfg.TargetDir,
		Hostname:  cfg.Hostname,
		Tags:      cfg.Tags,
	}, lifecycle.WithObservers(observers...))
	return app, nil
}

// Close flushes metrics and closes the journal and event connection.
func (a *App) Close() {
	if a.prom != nil {
		if err := metrics.WriteTextfile(a.Config.Metrics.Textfile, a.prom.Registry()); err != nil {
			slog.Warn("Failed to write metrics", logfields.Error(err))
		}
	}
	if a.emitter != nil {
		a.emitter.Close()
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			slog.Warn("Failed to close history journal", logfields.Error(err))
		}
	}
}
