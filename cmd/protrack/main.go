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

	"github.com/protrack-gov/protrack/internal/app"
	"github.com/protrack-gov/protrack/internal/audit"
	audithttp "github.com/protrack-gov/protrack/internal/audit/http"
	"github.com/protrack-gov/protrack/internal/auth"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/observability"
	"github.com/protrack-gov/protrack/internal/platform/cache"
	"github.com/protrack-gov/protrack/internal/platform/db"
	"github.com/protrack-gov/protrack/internal/projects"
	"github.com/protrack-gov/protrack/internal/shared"
	"github.com/protrack-gov/protrack/internal/users"
	"github.com/protrack-gov/protrack/jobs"
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

	// The capability registry is validated before anything listens. A
	// malformed key is a programming error and the process refuses to start.
	registry, err := authz.DefaultRegistry()
	if err != nil {
		logger.Error("capability registry invalid", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{ConnectTimeout: 10 * time.Second})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "protrack_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(pool)
	var appender audit.Appender = auditRepo
	var queueClient *jobs.Client
	if cfg.AuditQueueEnabled {
		queueClient, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			logger.Error("init audit queue client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warn("queue client close", slog.Any("error", err))
			}
		}()
		appender = queueClient
	}
	auditLedger := audit.NewLedger(appender, logger, metrics)
	auditService := audit.NewService(auditRepo)

	policyStore := authz.NewPGPolicyStore(pool, registry)
	overrideStore := authz.NewPGOverrideStore(pool, registry)
	resolver := authz.NewResolver(policyStore, overrideStore)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	identityResolver := auth.NewIdentityResolver(authRepo)
	gate := authz.NewGate(resolver, identityResolver, logger)

	authHandler := auth.NewHandler(logger, authService, sessionManager, auditLedger)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLedger)
	usersHandler := users.NewHandler(logger, usersService)

	authzHandler := authz.NewHandler(logger, registry, policyStore, overrideStore, usersRepo, auditLedger)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo, auditLedger)
	projectsHandler := projects.NewHandler(logger, projectsService)

	auditHandler := audithttp.NewHandler(logger, auditService, auditLedger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Gate:            gate,
		AuthHandler:     authHandler,
		AuthzHandler:    authzHandler,
		UsersHandler:    usersHandler,
		ProjectsHandler: projectsHandler,
		AuditHandler:    auditHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
