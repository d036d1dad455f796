package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gathering/gatekeeper/pkg/api"
	"github.com/gathering/gatekeeper/pkg/async"
	"github.com/gathering/gatekeeper/pkg/audit"
	"github.com/gathering/gatekeeper/pkg/auth"
	"github.com/gathering/gatekeeper/pkg/config"
	"github.com/gathering/gatekeeper/pkg/observability"
	"github.com/gathering/gatekeeper/pkg/storage/postgres"
	redisstore "github.com/gathering/gatekeeper/pkg/storage/redis"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gatekeeper %s\n", observability.Version)
		return
	}

	// Bootstrap logger for startup failures, before config is loaded
	startLog := logrus.New()
	startLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		startLog.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", observability.Version).Info("Starting gatekeeper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Database
	cm, err := postgres.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		startLog.Fatalf("Failed to connect to database: %v", err)
	}
	defer cm.Close()

	if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil {
		startLog.Fatalf("Failed to run migrations: %v", err)
	}
	cm.StartHealthCheckRoutine(ctx, 30*time.Second)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			metrics.CollectDBStats(func() (int, int) {
				stats := cm.Stats()
				return stats.InUse, stats.Idle
			})
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Redis is required for the redis blacklist backend, optional
	// otherwise (used for distributed login rate limiting when present)
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = redisstore.NewClient(cfg.Storage)
		if err != nil {
			if cfg.Auth.BlacklistBackend == "redis" {
				startLog.Fatalf("Failed to connect to redis: %v", err)
			}
			logger.WithError(err).Warn("Redis unavailable, falling back to in-process rate limiting")
			redisClient = nil
		}
	}

	var blacklistStore auth.BlacklistStore
	if cfg.Auth.BlacklistBackend == "redis" {
		blacklistStore = redisstore.NewBlacklistStore(redisClient)
	} else {
		blacklistStore = postgres.NewBlacklistStore(cm)
	}

	// Auth service
	codec, err := auth.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		startLog.Fatalf("Failed to initialize token codec: %v", err)
	}

	blacklist := auth.NewBlacklist(blacklistStore, auth.BlacklistConfig{
		CacheMaxSize: cfg.Auth.BlacklistCacheSize,
		StoreTimeout: cfg.Auth.BlacklistStoreTimeout,
	}, logger, metrics)

	var recorder audit.Recorder
	if dbLogger, err := audit.NewDBLogger(cm.Primary(), logger); err != nil {
		logger.WithError(err).Warn("Audit logging disabled")
	} else {
		recorder = dbLogger
	}

	users := postgres.NewUserStore(cm)
	service := auth.NewService(users, codec, blacklist, cfg.AdminConfig(), recorder, logger, metrics)

	// OpenTelemetry
	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("OpenTelemetry initialization failed, continuing without tracing")
		}
	}

	// Periodic blacklist sweep
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Auth.BlacklistSweepSchedule, func() {
		defer observability.RecoverPanic(logger, "blacklist sweep")
		cacheRemoved, storeRemoved := blacklist.Sweep(ctx)
		logger.WithFields(map[string]interface{}{
			"cache_removed": cacheRemoved,
			"store_removed": storeRemoved,
		}).Info("Blacklist sweep complete")
	})
	if err != nil {
		startLog.Fatalf("Invalid sweep schedule %q: %v", cfg.Auth.BlacklistSweepSchedule, err)
	}
	sweeper.Start()

	// Clear anything that expired while the service was down
	async.SafeGo(ctx, logger, time.Minute, "startup blacklist sweep", func(sweepCtx context.Context) error {
		blacklist.Sweep(sweepCtx)
		return nil
	})

	// HTTP API
	apiServer := api.NewServer(service, api.Config{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RedisClient:    redisClient,
		TracingEnabled: cfg.Observability.OTelEnabled,
		BaseContext:    ctx,
	}, logger, metrics)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes stay off the
	// public listener
	checker := observability.NewHealthChecker(cm.Primary(), redisClient)
	checker.RegisterCheck("blacklist_store", blacklistStoreCheck(blacklistStore))

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsSrv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: opsMux,
	}

	shutdown := observability.NewShutdownManager(logger, srv, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(opsSrv.Shutdown)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		<-sweeper.Stop().Done()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
		})
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("API server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", opsSrv.Addr).Info("Health server listening")
		if err := opsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		startLog.Fatalf("Server error: %v", err)
	}
	logger.Info("Gatekeeper stopped")
}

// blacklistStoreCheck reports whether the durable revocation store is
// answering queries. A down store degrades overall health rather than
// failing it, matching the fail-open verification path.
func blacklistStoreCheck(store auth.BlacklistStore) observability.CheckFunc {
	return func(ctx context.Context) observability.DependencyStatus {
		start := time.Now()
		status := observability.DependencyStatus{Timestamp: start}

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if _, err := store.CountActive(checkCtx); err != nil {
			status.Status = observability.StatusUnhealthy
			status.Message = err.Error()
			return status
		}

		status.Status = observability.StatusHealthy
		status.Latency = time.Since(start)
		return status
	}
}
