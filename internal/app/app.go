package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/books"
	"github.com/five82/audioshelf/internal/config"
	"github.com/five82/audioshelf/internal/logging"
	"github.com/five82/audioshelf/internal/plex"
	"github.com/five82/audioshelf/internal/plex/plexfake"
	"github.com/five82/audioshelf/internal/prefs"
	"github.com/five82/audioshelf/internal/state"
	"github.com/five82/audioshelf/internal/store"
	"github.com/five82/audioshelf/internal/ui"
)

// Options configure the audioshelf application.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/audioshelf/prefs.toml
	Fake         bool   // use the built-in demo server instead of plex.tv
	LogLevel     string // overrides the config file when set
	RefreshEvery time.Duration
	Version      string
}

// Run boots the audioshelf TUI until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) (err error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Fake {
		cfg.FakeServer = true
	}

	logger, logCloser, err := logging.New(logging.Options{Path: cfg.LogPath(), Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()
	logger.Info().
		Str("version", opts.Version).
		Bool("fake_server", cfg.FakeServer).
		Str("store", cfg.StorePath()).
		Msg("audioshelf starting")

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", prefsPath).Msg("using default preferences")
	}

	db, err := store.OpenSQLite(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("close store failed")
		}
	}()

	client, err := newClient(cfg, opts.Version, logging.Component(logger, "plex"))
	if err != nil {
		return fmt.Errorf("init plex client: %w", err)
	}

	bridge := ui.NewEventBridge()
	shelf, err := state.New(state.Options{
		Client:     client,
		Repository: state.NewRepository(db, logging.Component(logger, "store")),
		Notifier:   bridge,
		Locator:    books.DirLocator(cfg.DownloadDir),
		PinTTL:     cfg.PinTimeout,
		Logger:     logging.Component(logger, "state"),
	})
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}
	defer func() {
		if cerr := shelf.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("final save failed")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	StartRefresher(ctx, shelf, PollerOptions{
		Interval: opts.RefreshEvery,
		Logger:   logging.Component(logger, "refresher"),
	})

	pollPin := func(ctx context.Context) <-chan error {
		return StartPinPoller(ctx, shelf, PollerOptions{
			Interval: cfg.PinPoll,
			Logger:   logging.Component(logger, "pin"),
		})
	}

	err = ui.Run(ui.Options{
		Context:   ctx,
		Backend:   shelf,
		Events:    bridge,
		PollPin:   pollPin,
		LogPath:   cfg.LogPath(),
		PrefsPath: prefsPath,
		Prefs:     userPrefs,
		Logger:    logging.Component(logger, "ui"),
	})
	logger.Info().Err(err).Msg("audioshelf stopping")
	return err
}

func newClient(cfg config.Config, version string, logger zerolog.Logger) (plex.Service, error) {
	if cfg.FakeServer {
		logger.Warn().Msg("using built-in demo server")
		return plexfake.Demo(), nil
	}
	client, err := plex.NewClient(plex.Options{
		BaseURL: cfg.PlexURL,
		Version: version,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
