package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"mailcraft/config"
	"mailcraft/internal/blob"
	"mailcraft/internal/db"
	"mailcraft/internal/health"
	"mailcraft/internal/logs"
	"mailcraft/internal/middleware"
	"mailcraft/internal/repo"
	"mailcraft/internal/templates"
	"mailcraft/internal/thumbnail"
	"mailcraft/internal/uploads"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	Handler    http.Handler // Router + CORS снаружи: preflight не матчится маршрутами
	httpServer *http.Server
	limiter    *middleware.RateLimiter

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	/* 1) Логи */
	if err := logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return fmt.Errorf("logs init: %w", err)
	}

	/* 2) DB + схема + словарь статусов */
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	a.db = d
	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.Migrate(migrateCtx, a.db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	/* 3) Хранилище файлов и пайплайн превью */
	store, err := newBlobStore(migrateCtx, cfg)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	pipeline := thumbnail.New(newLauncher(cfg), store, thumbnail.Options{
		ViewportWidth: cfg.Thumbnails.ViewportWidth,
		Quality:       cfg.Thumbnails.Quality,
		LoadTimeout:   cfg.Thumbnails.LoadTimeout,
	})

	svc := templates.NewService(
		repo.NewTemplateStore(a.db),
		repo.NewTagStore(a.db),
		repo.NewStatusStore(a.db),
		pipeline,
	)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health */
	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz

	/* 6) Статика локального хранилища */
	if local, ok := store.(*blob.Local); ok {
		prefix := publicPrefix(cfg.Storage.PublicBase)
		a.Router.PathPrefix(prefix).
			Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(local.Root())))).
			Methods(http.MethodGet, http.MethodHead)
	}

	/* 7) API под JWT */
	api := a.Router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.CookieName))

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.PreviewPerMinute, cfg.RateLimit.PreviewBurst)
	templates.RegisterRoutes(api, templates.NewHandler(svc), a.limiter.Middleware)
	uploads.RegisterRoutes(api, uploads.NewHandler(store, cfg.Storage.MaxUploadMB))

	a.Handler = middleware.CORS(cfg.CORS.AllowedOrigins)(a.Router)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
	return nil
}

func (a *App) Run() error {
	if a.Handler == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigs:
			logs.Logger.Infof("shutdown signal: %s", s)
			a.cancel()
		case <-a.ctx.Done():
		}
	}()

	if a.limiter != nil {
		go a.limiter.Cleanup(a.ctx, 10*time.Minute)
	}

	// генерация превью идёт внутри запроса: запас на запуск браузера и загрузку
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      a.cfg.Thumbnails.LoadTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case <-a.ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
