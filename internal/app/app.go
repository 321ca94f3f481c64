package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatherly/web/internal/config"
	"github.com/gatherly/web/internal/database"
	"github.com/gatherly/web/internal/middleware"
	pkgcron "github.com/gatherly/web/internal/pkg/cron"
	pkgredis "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
	"github.com/gatherly/web/internal/upstream/stub"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	api      *upstream.Client
	sessions *session.Store
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
}

// New initializes the application: config → session store → Redis → upstream
// client → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	var (
		db        *gorm.DB
		persister session.Persister
		err       error
	)
	if cfg.DSN == "" {
		// No database configured: sessions live in process memory only.
		persister = session.NewMemoryPersister()
		logger.Warn("no dsn configured, sessions will not survive restarts")
	} else {
		db, err = database.Connect(cfg, true)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		persister = session.NewGormPersister(db)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	baseURL := cfg.Upstream.BaseURL
	if cfg.Upstream.Stub {
		baseURL, err = startStubBackend(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("stub backend: %w", err)
		}
	}
	api := upstream.New(baseURL, cfg.Upstream.Timeout, cfg.Cookies.AccessToken)
	sessions := session.NewStore(persister, api.CurrentUser, session.DefaultStaleAfter)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ClientKey(cfg.Cookies.ClientKey, cfg.Cookies.AccessToken, cfg.Cookies.Secure))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	registerCronJobs(sched, persister, rc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		api:      api,
		sessions: sessions,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
	}
	app.registerRoutes(rc)

	return app, nil
}

// startStubBackend serves the in-process fake backend on a loopback port and
// returns its base URL.
func startStubBackend(cfg *config.AppConfig, logger *zap.Logger) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	backend := stub.New(cfg.Cookies.AccessToken)
	go func() {
		if serveErr := http.Serve(ln, backend.Handler()); serveErr != nil {
			logger.Warn("stub backend stopped", zap.Error(serveErr))
		}
	}()
	baseURL := "http://" + ln.Addr().String()
	logger.Info("stub backend listening", zap.String("url", baseURL))
	return baseURL, nil
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", "x-gatherly-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsConfig
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
