package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/giftloop/giftloop-backend/api/routes"
	"github.com/giftloop/giftloop-backend/internal/claims"
	"github.com/giftloop/giftloop-backend/internal/collaborators"
	"github.com/giftloop/giftloop-backend/internal/invites"
	"github.com/giftloop/giftloop-backend/internal/items"
	"github.com/giftloop/giftloop-backend/internal/ownership"
	"github.com/giftloop/giftloop-backend/internal/registries"
	"github.com/giftloop/giftloop-backend/internal/users"
	"github.com/giftloop/giftloop-backend/pkg/config"
	"github.com/giftloop/giftloop-backend/pkg/db"
	"github.com/giftloop/giftloop-backend/pkg/logger"
	"github.com/giftloop/giftloop-backend/pkg/metrics"
	"github.com/giftloop/giftloop-backend/pkg/migrate"
	"github.com/giftloop/giftloop-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	registryRepo := registries.NewRepository(gormDB)
	collabRepo := collaborators.NewRepository(gormDB)
	inviteRepo := invites.NewRepository(gormDB)
	itemRepo := items.NewRepository(gormDB)
	claimRepo := claims.NewRepository(gormDB)
	resolver := ownership.NewResolver(gormDB)

	var metricsHandler http.Handler
	var claimMetrics *metrics.ClaimMetrics
	if cfg.Claims.MetricsEnabled {
		registry := prometheus.NewRegistry()
		claimMetrics = metrics.NewClaimMetrics(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	registrySvc, err := registries.NewService(dbClient, registryRepo, collabRepo, userRepo, logg)
	if err != nil {
		fatalWiring(logg, "registries", err, dbClient, redisClient)
	}
	collabSvc, err := collaborators.NewService(dbClient, collabRepo, registryRepo, logg)
	if err != nil {
		fatalWiring(logg, "collaborators", err, dbClient, redisClient)
	}
	inviteSvc, err := invites.NewService(dbClient, inviteRepo, collabRepo, registryRepo, cfg.Invite, logg)
	if err != nil {
		fatalWiring(logg, "invites", err, dbClient, redisClient)
	}
	itemSvc, err := items.NewService(itemRepo, resolver, collabRepo, logg)
	if err != nil {
		fatalWiring(logg, "items", err, dbClient, redisClient)
	}
	claimSvc, err := claims.NewService(dbClient, claimRepo, userRepo, logg, claimMetrics)
	if err != nil {
		fatalWiring(logg, "claims", err, dbClient, redisClient)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			Redis:         redisClient,
			Identities:    userRepo,
			Profiles:      userRepo,
			Registries:    registrySvc,
			Collaborators: collabSvc,
			Invites:       inviteSvc,
			Items:         itemSvc,
			Claims:        claimSvc,
			Metrics:       metricsHandler,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			_ = closeResources(dbClient, redisClient)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	if err := closeResources(dbClient, redisClient); err != nil {
		logg.Error(ctx, "error releasing resources", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func closeResources(dbClient *db.Client, redisClient *redis.Client) error {
	var errs error
	if redisClient != nil {
		errs = multierr.Append(errs, redisClient.Close())
	}
	if dbClient != nil {
		errs = multierr.Append(errs, dbClient.Close())
	}
	return errs
}

func fatalWiring(logg *logger.Logger, component string, err error, dbClient *db.Client, redisClient *redis.Client) {
	logg.Error(context.Background(), "failed to wire "+component+" service", err)
	_ = closeResources(dbClient, redisClient)
	os.Exit(1)
}
