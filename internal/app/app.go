package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/mensabot/internal/bot"
	"github.com/vbonduro/mensabot/internal/config"
	"github.com/vbonduro/mensabot/internal/console"
	"github.com/vbonduro/mensabot/internal/credentials"
	"github.com/vbonduro/mensabot/internal/db"
	"github.com/vbonduro/mensabot/internal/instagram"
	"github.com/vbonduro/mensabot/internal/logging"
	"github.com/vbonduro/mensabot/internal/ocr"
	"github.com/vbonduro/mensabot/internal/ocr/claude"
	"github.com/vbonduro/mensabot/internal/ocr/ocrspace"
	"github.com/vbonduro/mensabot/internal/ocr/tesseract"
	"github.com/vbonduro/mensabot/internal/scheduler"
	"github.com/vbonduro/mensabot/internal/service"
	"github.com/vbonduro/mensabot/internal/session"
	"github.com/vbonduro/mensabot/internal/sessionstore/local"
	"github.com/vbonduro/mensabot/internal/store"
	"github.com/vbonduro/mensabot/internal/web"
)

const snapshotRetention = 30 * 24 * time.Hour

// Options are the command-line switches that shape a run.
type Options struct {
	Debug       bool
	Demo        bool
	NoConsole   bool
	ConsoleOnly bool
}

// App owns every long-lived component of the bot.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	level  *slog.LevelVar
	loc    *time.Location

	state     *State
	database  *sql.DB
	creds     *credentials.Provider
	login     *session.Manager
	extractor *ocr.Extractor
	snapshots *store.SnapshotStore
	menus     *service.MenuCache

	closers []func()
}

// New wires the components in dependency order: logging, database, stores,
// services.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{cfg: cfg, opts: opts}

	level := cfg.LogLevel
	if opts.Debug {
		level = "debug"
	}
	consoleOwnsTerminal := !opts.NoConsole
	logFile := cfg.LogFile
	if consoleOwnsTerminal && logFile == "" {
		logFile = config.DefaultLogPath()
	}
	logger, lvl, cleanup, err := logging.New(level, logFile, consoleOwnsTerminal)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger, a.level = logger, lvl
	a.closers = append(a.closers, cleanup)

	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.loc = loc
	a.state = NewState(cfg.DemoMode || a.opts.Demo)

	if err := a.openDatabase(); err != nil {
		return err
	}
	a.snapshots = store.NewSnapshotStore(a.database)

	sessions, err := local.NewLocalSessionStore(cfg.SessionPath)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	client := instagram.NewClient(cfg.InstagramBaseURL, a.logger)
	a.creds = credentials.NewProvider(cfg.KeyringService, a.logger)
	var loginOpts []session.Option
	if cfg.InstagramUsername != "" {
		loginOpts = append(loginOpts, session.WithUsername(cfg.InstagramUsername))
	}
	a.login = session.NewManager(client, sessions, a.creds, a.logger, loginOpts...)

	ocrOpts := ocr.DefaultOptions()
	ocrOpts.Preprocess.Dilate = cfg.OCRDilate
	a.extractor = ocr.NewExtractor(a.newLocalEngine(), a.newCloudEngine(), ocrOpts, a.logger)

	fetchOpts := service.DefaultFetchOptions()
	fetchOpts.Account = cfg.Account
	fetchOpts.FallbackUserID = cfg.FallbackUserID
	fetchOpts.RequireLocalOCR = cfg.RequireLocalOCR
	fetchOpts.Location = loc
	fetcher := service.NewFetchService(client, a.login, a.extractor, a.state, fetchOpts, a.logger)

	cacheOpts := service.DefaultCacheOptions()
	cacheOpts.Timeout = cfg.FetchTimeoutDuration()
	cacheOpts.RetryDelay = cfg.RetryDelayDuration()
	cacheOpts.Location = loc
	a.menus = service.NewMenuCache(fetcher, a.snapshots, cacheOpts, a.logger)
	return nil
}

func (a *App) openDatabase() error {
	var (
		database *sql.DB
		err      error
	)
	if a.cfg.TestMode {
		database, err = db.OpenInMemory()
	} else {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0700); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		database, err = db.Open(a.cfg.DBPath)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.database = database
	a.closers = append(a.closers, func() {
		if err := database.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	})
	return nil
}

func (a *App) newLocalEngine() ocr.Engine {
	if a.cfg.OCRBackend == "gosseract" {
		engine, err := tesseract.NewInProcess(a.cfg.OCRLanguage, a.cfg.OCRWhitelist)
		if err == nil {
			a.logger.Info("using in-process tesseract")
			return engine
		}
		a.logger.Warn("in-process tesseract unavailable, using the command line", "error", err)
	}
	return tesseract.New(a.cfg.TesseractPath, a.cfg.OCRLanguage, a.cfg.OCRWhitelist)
}

// newCloudEngine returns nil when no cloud backend is usable.
func (a *App) newCloudEngine() ocr.Engine {
	switch a.cfg.CloudOCR {
	case "ocrspace":
		if a.cfg.OCRAPIKey == "" {
			a.logger.Info("OCR_API_KEY not set, cloud ocr disabled")
			return nil
		}
		return ocrspace.New(a.cfg.OCRAPIKey, a.cfg.OCRLanguage, a.cfg.OCRSpaceURL)
	case "claude":
		if a.cfg.ClaudeAPIKey == "" {
			a.logger.Error("CLAUDE_API_KEY is required when CLOUD_OCR=claude")
			return nil
		}
		a.logger.Info("using Claude transcription backend", "model", a.cfg.ClaudeModel)
		return claude.New(a.cfg.ClaudeAPIKey, a.cfg.ClaudeModel)
	default:
		return nil
	}
}

func (a *App) Logger() *slog.Logger               { return a.logger }
func (a *App) State() *State                      { return a.state }
func (a *App) Menus() *service.MenuCache          { return a.menus }
func (a *App) Credentials() *credentials.Provider { return a.creds }

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run starts every surface and blocks until ctx is done or the console quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !a.state.DemoMode() {
		if a.login.Login(ctx) {
			a.logger.Info("instagram login succeeded")
		} else {
			a.logger.Warn("instagram login failed, menus will be placeholders until it succeeds")
		}
	}

	warmed, err := a.menus.Warm(ctx)
	if err != nil {
		a.logger.Warn("failed to load last snapshot", "error", err)
	}
	if n, err := a.snapshots.DeleteBefore(ctx, time.Now().Add(-snapshotRetention)); err != nil {
		a.logger.Warn("failed to prune snapshots", "error", err)
	} else if n > 0 {
		a.logger.Info("pruned old snapshots", "deleted", n)
	}

	daily, err := scheduler.NewDaily(a.cfg.FetchAt, a.loc, a.state, a.logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if !warmed {
		g.Go(func() error {
			a.menus.FetchDailyMenus(gctx)
			return nil
		})
	}

	g.Go(func() error {
		return daily.Start(gctx, func(ctx context.Context, trigger time.Time) {
			a.logger.Info("scheduled menu update", "trigger", trigger)
			a.menus.FetchDailyMenus(ctx)
		})
	})

	if !a.opts.ConsoleOnly {
		if err := a.startBot(gctx, g); err != nil {
			a.logger.Warn("telegram bot disabled", "error", err)
		}
	}

	if a.cfg.ListenAddr != "" {
		server := web.NewServer(a.menus, a.login, a.state, a.logger)
		g.Go(func() error {
			if err := server.ListenAndServe(gctx, a.cfg.ListenAddr); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
	}

	if !a.opts.NoConsole {
		model := console.New(gctx, console.Options{
			Menus:  a.menus,
			Login:  a.login,
			State:  a.state,
			Level:  a.level,
			Logger: a.logger,
		})
		g.Go(func() error {
			defer cancel()
			return console.Run(gctx, model)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) startBot(ctx context.Context, g *errgroup.Group) error {
	token, err := a.creds.TelegramToken()
	if err != nil {
		return err
	}
	api, err := bot.NewAPI(token)
	if err != nil {
		return err
	}
	b := bot.New(api, a.menus, a.extractor, a.state, a.logger)
	g.Go(func() error { return b.Run(ctx) })
	return nil
}
