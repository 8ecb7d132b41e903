package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"

	sessioninadapter "companion/internal/modules/session/adapter/in"
	sessionoutadapter "companion/internal/modules/session/adapter/out"
	sessionout "companion/internal/modules/session/port/out"
	sessionservice "companion/internal/modules/session/service"
	sessionusecase "companion/internal/modules/session/usecase"
	"companion/internal/platform/clock"
	"companion/internal/platform/config"
	"companion/internal/platform/id"
	"companion/internal/platform/logging"
	"companion/internal/platform/tx"
)

type App struct {
	Config     config.Config
	Logger     hclog.Logger
	SessionCLI sessioninadapter.CLIHandler
	Scheduler  *sessionservice.Scheduler

	service *sessionservice.SessionService
	closers []func() error
}

// Options carries process-level wiring that does not belong in config.
type Options struct {
	LogOutput    io.Writer
	NotifyOutput io.Writer
}

func New(cfg config.Config, opts Options) (*App, error) {
	logger := logging.New(cfg.LogLevel, opts.LogOutput)
	if opts.NotifyOutput == nil {
		opts.NotifyOutput = os.Stdout
	}
	app := &App{Config: cfg, Logger: logger}

	db, err := sessionoutadapter.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	store, err := newStateStore(cfg, db)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new state store: %w", err)
	}
	history, err := sessionoutadapter.NewSQLiteHistoryProjector(db)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new history projector: %w", err)
	}
	catalog, err := sessionoutadapter.NewStaticCatalog(cfg.CatalogPath)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var precacher sessionout.AudioPrecacher = sessionoutadapter.NoopAudioPrecacher{}
	if cfg.PrecachePlug != "" {
		plug := sessionoutadapter.NewPluginAudioPrecacher(cfg.PrecachePlug, cfg.AudioCacheDir, logger)
		app.closers = append(app.closers, func() error { plug.Close(); return nil })
		precacher = plug
	}

	svc := sessionservice.NewSessionService(sessionservice.Dependencies{
		Clock:     clock.SystemClock{},
		IDs:       id.UUID{},
		Catalog:   catalog,
		Store:     store,
		History:   history,
		Precacher: precacher,
		Shell:     sessionoutadapter.NewLogAppShell(logger, opts.NotifyOutput, cfg.Notifications),
		Exporter:  sessionoutadapter.NewMarkdownSessionExporter(cfg.ExportDir),
		Tx:        tx.SQLManager{DB: db},
		Logger:    logger,
	})
	app.service = svc
	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionusecase.NewInteractor(svc, catalog))
	app.Scheduler = sessionservice.NewScheduler(svc, cfg.TickInterval, logger)
	return app, nil
}

func newStateStore(cfg config.Config, db *sql.DB) (sessionout.StateStore, error) {
	switch cfg.StateBackend {
	case config.StateBackendSQLite:
		return sessionoutadapter.NewSQLiteStateStore(db)
	default:
		return sessionoutadapter.NewFileStateStore(cfg.DataDir), nil
	}
}

// Close stops the scheduler, waits for in-flight effects and releases
// resources in reverse order of acquisition.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.service != nil {
		a.service.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
