package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scrapline/scrapline-backend/api/routes"
	"github.com/scrapline/scrapline-backend/internal/directory"
	"github.com/scrapline/scrapline-backend/internal/drafts"
	"github.com/scrapline/scrapline-backend/internal/fulfillment"
	"github.com/scrapline/scrapline-backend/internal/matching"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/internal/orders"
	"github.com/scrapline/scrapline-backend/internal/pickups"
	"github.com/scrapline/scrapline-backend/pkg/config"
	"github.com/scrapline/scrapline-backend/pkg/db"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/metrics"
	"github.com/scrapline/scrapline-backend/pkg/migrate"
	"github.com/scrapline/scrapline-backend/pkg/redis"
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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	stats := metrics.NewCoreMetrics(registry)

	conn := dbClient.DB()

	directoryRepo := directory.NewCachedRepository(
		directory.NewRepository(conn),
		redisClient,
		cfg.Directory.CacheTTL,
		logg,
	)
	directoryService, err := directory.NewService(directoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create directory service", err)
		os.Exit(1)
	}

	matcher, err := matching.NewEngine(directoryService, logg, stats)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching engine", err)
		os.Exit(1)
	}

	notifyRepo := notify.NewRepository(conn)
	gateway := notify.NewGateway(notify.NewInboxNotifier(notifyRepo), logg, stats)
	notifyService, err := notify.NewService(notifyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	pickupService, err := pickups.NewService(pickups.ServiceParams{
		Repo:    pickups.NewRepository(conn),
		Tx:      dbClient,
		Matcher: matcher,
		Gateway: gateway,
		Cfg:     cfg.Matching,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:    fulfillment.NewRepository(conn),
		Orders:  orders.NewRepository(conn),
		Guard:   drafts.NewGuard(conn),
		Tx:      dbClient,
		Matcher: matcher,
		Gateway: gateway,
		Logger:  logg,
		Metrics: stats,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
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
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Pickups:       pickupService,
			Fulfillment:   fulfillmentService,
			Notifications: notifyService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
