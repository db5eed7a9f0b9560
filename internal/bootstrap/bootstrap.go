package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	challengeinadapter "habitkit/internal/modules/challenge/adapter/in"
	challengeoutadapter "habitkit/internal/modules/challenge/adapter/out"
	challengein "habitkit/internal/modules/challenge/port/in"
	challengeusecase "habitkit/internal/modules/challenge/usecase"
	sessioninadapter "habitkit/internal/modules/session/adapter/in"
	sessionoutadapter "habitkit/internal/modules/session/adapter/out"
	sessionin "habitkit/internal/modules/session/port/in"
	sessionservice "habitkit/internal/modules/session/service"
	sessionusecase "habitkit/internal/modules/session/usecase"
	"habitkit/internal/platform/clock"
	"habitkit/internal/platform/config"
	"habitkit/internal/platform/events"
	"habitkit/internal/platform/httpx"
	"habitkit/internal/platform/id"
	"habitkit/internal/platform/identity"
	"habitkit/internal/platform/redis"
	"habitkit/internal/platform/sqldb"
	uiapp "habitkit/internal/ui/app"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	SessionCLI   sessioninadapter.CLIHandler
	ChallengeCLI challengeinadapter.CLIHandler
	Challenges   challengein.Usecase
	Broadcaster  *events.Broadcaster
	// Redis is nil when no Redis address is configured.
	Redis    *sessionoutadapter.RedisNotifier
	Registry *prometheus.Registry

	sessions     sessionin.Usecase
	httpSessions sessionin.Usecase
	db           *sqldb.DB
	rdb          *redis.Client
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, db: db, Broadcaster: events.NewBroadcaster()}

	ids := id.UUID{}
	sessionStore, err := sessionoutadapter.NewSQLSessionStore(ctx, db, ids)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	reflectionStore, err := sessionoutadapter.NewSQLReflectionStore(ctx, db, ids)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	local := sessionoutadapter.NewBroadcastNotifier(app.Broadcaster)
	notifier := sessionoutadapter.FanOut(local)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.rdb = rdb
		app.Redis = sessionoutadapter.NewRedisNotifier(rdb.Client, cfg.Redis.Channel, logger)
		notifier = sessionoutadapter.FanOut(local, app.Redis)
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.Challenges = challengeusecase.NewInteractor(challengeoutadapter.NewYAMLCatalog(cfg.CatalogPath), logger)

	clk := clock.SystemClock{}
	deps := sessionusecase.Deps{
		Lifecycle:  sessionservice.NewLifecycleService(clk, sessionStore, reflectionStore, logger),
		Reconciler: sessionservice.NewReconciler(sessionStore, reflectionStore, logger),
		Reflection: reflectionStore,
		Challenges: sessionoutadapter.NewCatalogLookup(app.Challenges),
		Notifier:   notifier,
		Recorder:   sessionoutadapter.NewPrometheusRecorder(app.Registry),
		Journal:    sessionoutadapter.NewMarkdownJournal(filepath.Join(cfg.DataDir, "journal")),
		Logger:     logger,
	}
	// The CLI acts as the configured local user. HTTP callers are only who
	// their request says they are.
	deps.Identity = identity.NewResolver(cfg.UserID)
	app.sessions = sessionusecase.NewInteractor(deps)
	deps.Identity = identity.NewResolver("")
	app.httpSessions = sessionusecase.NewInteractor(deps)
	app.SessionCLI = sessioninadapter.NewCLIHandler(app.sessions)
	app.ChallengeCLI = challengeinadapter.NewCLIHandler(app.Challenges)
	return app, nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sqldb.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return sqldb.OpenPostgres(ctx, cfg.DSN)
	case config.DriverSQLite, "":
		return sqldb.OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Router serves the JSON API, health and metrics.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Logger))
	r.GET("/health", func(c *gin.Context) {
		if err := a.db.PingContext(c.Request.Context()); err != nil {
			httpx.Abort(c, sqldb.Classify(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", httpx.Identify())
	sessioninadapter.NewHTTPHandler(a.httpSessions).Register(v1)
	challengeinadapter.NewHTTPHandler(a.Challenges).Register(v1)
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Err)
		}
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// Close releases the store and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// RelayRemoteChanges republishes change signals from other processes on the
// local broadcaster until ctx is done. It returns immediately without Redis.
func (a *App) RelayRemoteChanges(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Subscribe(ctx, a.Broadcaster.Publish)
}

// SubscribeChanges returns change signals for the configured local user. With
// no user configured it returns a nil channel, since the broadcaster treats
// an empty user as "every user".
func (a *App) SubscribeChanges() (<-chan struct{}, func()) {
	if a.Config.UserID == "" {
		return nil, func() {}
	}
	return a.Broadcaster.Subscribe(a.Config.UserID)
}

// RunTUI starts the dashboard. It refreshes on local changes and, when
// Redis is configured, on changes made by other processes.
func RunTUI(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, unsubscribe := app.SubscribeChanges()
	defer unsubscribe()
	go func() {
		if err := app.RelayRemoteChanges(ctx); err != nil {
			app.Logger.Warn("redis subscription ended", "error", err)
		}
	}()

	model := uiapp.NewModel(app.SessionCLI, app.ChallengeCLI, changes)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
