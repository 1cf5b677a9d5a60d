package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"PriceWatcher/internal/config"
	"PriceWatcher/internal/infrastructure/browser"
	"PriceWatcher/internal/infrastructure/httpapi"
	"PriceWatcher/internal/infrastructure/scheduler"
	"PriceWatcher/internal/infrastructure/storage"
	"PriceWatcher/internal/infrastructure/telegram"
	"PriceWatcher/internal/logging"
	"PriceWatcher/internal/observability"
	"PriceWatcher/internal/ports"
	"PriceWatcher/internal/site"
	"PriceWatcher/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Store is a price repository that owns its connection.
type Store interface {
	ports.PriceRepository
	Close() error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     Store
	session   *browser.Session
	scheduler *usecase.Scheduler
	server    *httpapi.Server
}

// New builds a runnable application instance. The store is opened here so
// a bad database configuration fails at startup.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	sites, err := site.NewRegistry(cfg.SiteConfigs())
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	baseLogger.Info("sites loaded", "count", sites.Len())

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engines := browser.NewRegistry()
	engines.Register(browser.NewPlaywrightEngine(cfg.Browser.Install, logging.Component(baseLogger, "browser.playwright")))
	engines.Register(browser.NewStaticEngine(nil))

	engine, err := engines.Resolve(cfg.Browser.Engine)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	session := browser.NewSession(engine, sites.Sites(), browser.SessionConfig{
		Headless:    cfg.Browser.IsHeadless(),
		UserAgent:   cfg.Browser.UserAgent,
		PageTimeout: cfg.Browser.PageTimeout,
	}, logging.Component(baseLogger, "browser.session"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("", registry)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Session:    session,
		Sites:      sites.Sites(),
		Repository: store,
		Notifier:   notifier,
		Metrics:    metrics,
		Logger:     logging.Component(baseLogger, "orchestrator"),
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.ShouldRunOnStart())
	sched := usecase.NewScheduler(driver, orchestrator, metrics, logging.Component(baseLogger, "scheduler"))

	var limiter *rate.Limiter
	if cfg.HTTP.ScrapeRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.ScrapeRate), max(cfg.HTTP.ScrapeBurst, 1))
	}

	router := httpapi.NewRouter(httpapi.Deps{
		State:      orchestrator.State(),
		Repository: store,
		Scraper:    sched,
		Limiter:    limiter,
		Metrics:    observability.Handler(registry),
		Logger:     logging.Component(baseLogger, "http"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		session:   session,
		scheduler: sched,
		server:    httpapi.NewServer(cfg.HTTP.Addr, router, logging.Component(baseLogger, "http")),
	}, nil
}

// Run starts the scheduler and serves HTTP until ctx is cancelled, then
// stops the scheduler and releases the browser and the store.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("price watcher starting",
		"addr", a.cfg.HTTP.Addr,
		"engine", a.cfg.Browser.Engine,
		"database", a.cfg.Database.Driver,
		"interval", a.cfg.Scheduler.Interval,
	)

	if err := a.scheduler.Start(ctx); err != nil {
		return errors.Join(fmt.Errorf("start scheduler: %w", err), a.close())
	}

	serveErr := a.server.Run(ctx, shutdownTimeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler did not stop in time", "error", err)
	}

	if serveErr != nil {
		serveErr = fmt.Errorf("serve http: %w", serveErr)
	}
	err := errors.Join(serveErr, a.close())
	if err == nil {
		a.logger.Info("graceful shutdown complete")
	}
	return err
}

func (a *Application) close() error {
	var errs []error
	if err := a.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return storage.OpenSQLite(ctx, cfg.DSN)
	case "postgres", "postgresql", "pgx":
		return storage.OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
