// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/ccdexplorer/ccdexplorer-api/internal/admin"
	"github.com/ccdexplorer/ccdexplorer-api/internal/apikey"
	"github.com/ccdexplorer/ccdexplorer-api/internal/auth"
	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/explorer"
	"github.com/ccdexplorer/ccdexplorer-api/internal/health"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
	"github.com/ccdexplorer/ccdexplorer-api/internal/server"
	"github.com/ccdexplorer/ccdexplorer-api/internal/user"
)

const (
	drainDelay = 5 * time.Second
	loginPath  = "/auth/login"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func serve(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"net", cfg.Explorer.Net,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("tracing initialized",
		"exporting", telemetry.Exporting(),
		"endpoint", cfg.Otel.Endpoint,
	)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	node, err := core.NewNode(cfg.Node)
	if err != nil {
		return err
	}

	m := metrics.New()
	docs := db.Documents()
	scope := cfg.Explorer.APIURL

	keyRepo := apikey.NewRepository(docs)
	directory := apikey.NewDirectory(keyRepo, scope, cfg.Cache.APIKeysTTL,
		apikey.WithDirectoryMetrics(m),
	)
	go func() {
		if err := directory.Listen(ctx, redis, cfg.Explorer.KeysChannel); err != nil {
			logger.Error("api key listener stopped", "error", err)
		}
	}()
	keySvc := apikey.NewService(keyRepo, scope, cfg.Explorer.KeysChannel, redis, directory)

	userRepo := user.NewRepository(db.DB)
	billingSvc := newBilling(cfg, docs, userRepo, keySvc, m, telemetry.Tracer)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(
		jwtManager,
		user.NewAccounts(userRepo, scope, cfg.Explorer.Net),
		auth.NewRedisBlacklist(redis.Client),
		auth.NewLogNotifier(logger),
		cfg.Session,
	)
	authHandler := auth.NewHandler(authSvc, cfg.Session.CookieName, cfg.Session.Secure)
	sessions := middleware.NewSessions(authSvc, cfg.Session.CookieName)

	quotaCounter := middleware.NewRedisQuotaCounter(redis.Client)
	userSvc := user.NewService(userRepo, keySvc, quotaCounter, billingSvc, cfg.Explorer.Net)
	userHandler := user.NewHandler(userSvc)

	explorerHandler := explorer.NewHandler(explorer.NewRepository(docs), cfg.Cache, m)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "node", Checker: node},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:       db.Stats,
		RedisStats:    redis.PoolStats,
		DBPing:        db.Ping,
		RedisPing:     redis.Ping,
		NodePing:      node.Ping,
		Accounts:      userSvc,
		Subscriptions: billingSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Tracing(telemetry.Tracer))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	router.Handle("/metrics", m.Handler())
	healthHandler.RegisterRoutes(router)

	router.Route("/v2", func(r chi.Router) {
		r.Use(middleware.Quota(directory, quotaCounter, m))
		explorerHandler.RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(ipRateLimiter(redis, cfg.RateLimit))

		authHandler.RegisterRoutes(r, sessions.Authenticator)
		userHandler.RegisterRoutes(r, sessions.LoginRequired(loginPath))
		adminHandler.RegisterRoutes(r, sessions.Authenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	closeAll(logger,
		closer{"node", node.Close},
		closer{"redis", redis.Close},
		closer{"database", db.Close},
	)

	logger.Info("application stopped")
	return nil
}

func ipRateLimiter(redis *core.Redis, cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	return middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerWindow(cfg.Requests, cfg.Burst, cfg.Window),
	}).Handler
}

type closer struct {
	name  string
	close func() error
}

func closeAll(logger *slog.Logger, closers ...closer) {
	for _, c := range closers {
		if err := c.close(); err != nil {
			logger.Error(c.name+" close error", "error", err)
		}
	}
}
