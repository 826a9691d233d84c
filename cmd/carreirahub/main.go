package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/carreirahub/carreirahub/internal/app"
	"github.com/carreirahub/carreirahub/internal/audit"
	audithttp "github.com/carreirahub/carreirahub/internal/audit/http"
	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/guard"
	"github.com/carreirahub/carreirahub/internal/observability"
	"github.com/carreirahub/carreirahub/internal/platform/cache"
	"github.com/carreirahub/carreirahub/internal/platform/db"
	"github.com/carreirahub/carreirahub/internal/portal"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/shared"
	"github.com/carreirahub/carreirahub/internal/users"
	"github.com/carreirahub/carreirahub/internal/view"
	"github.com/carreirahub/carreirahub/jobs"
	"github.com/carreirahub/carreirahub/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := rbac.DefaultRegistry(cfg.Unlisted)
	resolver := rbac.NewResolver(registry)

	sessions := session.NewManager(
		session.NewRedisStorage(redisClient, cfg.SessionPrefix, cfg.SessionTTL),
		registry,
		logger,
		session.ManagerConfig{
			CookieName: cfg.SessionCookie,
			Secret:     cfg.SessionSecret,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.IsProduction(),
		},
	)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(dbpool), registry, jobClient, logger)
	authHandler := auth.NewHandler(auth.HandlerConfig{
		Logger:     logger,
		Service:    authService,
		Templates:  templates,
		Resolver:   resolver,
		Audit:      auditLogger,
		Metrics:    metrics,
		LoginLimit: cfg.LoginLimitPerMinute,
	})

	portalHandler := portal.NewHandler(portal.HandlerConfig{
		Logger:    logger,
		Templates: templates,
		Resolver:  resolver,
		Guard:     guard.New(resolver, cfg.Strategy, ""),
		Audit:     auditLogger,
		Metrics:   metrics,
		Accounts:  authService,
	})

	usersHandler := users.NewHandler(users.HandlerConfig{
		Logger:   logger,
		Service:  users.NewService(users.NewRepository(dbpool), registry, auditLogger, logger),
		Pages:    portalHandler,
		Protect:  portalHandler.Protect,
		Resolver: resolver,
	})
	var pdfRenderer audit.PDFRenderer
	if cfg.GotenbergURL != "" {
		pdfClient := report.NewClient(cfg.GotenbergURL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := pdfClient.Ping(pingCtx); err != nil {
			logger.Warn("gotenberg unavailable, pdf export will fail until it recovers", slog.Any("error", err))
		}
		cancel()
		pdfRenderer = pdfClient
	}
	auditHandler := audithttp.NewHandler(audithttp.HandlerConfig{
		Logger:   logger,
		Service:  audit.NewService(audit.NewRepository(dbpool)),
		Exporter: audit.NewExporter(pdfRenderer),
		Pages:    portalHandler,
		Protect:  portalHandler.Protect,
		Resolver: resolver,
	})

	rbacMiddleware := rbac.Middleware{Resolver: resolver, Role: session.RoleFromRequest, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Sessions:           sessions,
		AuthHandler:        authHandler,
		PortalHandler:      portalHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(resolver, rbacMiddleware),
		UsersHandler:       usersHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
