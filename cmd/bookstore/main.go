// Command bookstore runs the bookstore API daemon: the HTTP API on one
// port and health/metrics endpoints on another, with a periodic sweeper
// purging expired tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/giabaovo/resola-code-challenge/pkg/accounts"
	"github.com/giabaovo/resola-code-challenge/pkg/api"
	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/config"
	"github.com/giabaovo/resola-code-challenge/pkg/middleware"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
	"github.com/giabaovo/resola-code-challenge/pkg/storage/memory"
	"github.com/giabaovo/resola-code-challenge/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookstore: %v\n", err)
		os.Exit(1)
	}
}

// stores is the storage surface the daemon wires together
type stores interface {
	accounts.UserStore
	auth.UserGetter
	auth.TokenStore
	books.BookStore
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"storage": cfg.Storage.Type,
		"port":    cfg.Server.Port,
	}).Info("starting bookstore API")

	ctx := context.Background()

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Metrics
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Storage
	store, healthChecker, closeStore, err := buildStorage(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	// Services and handlers
	authority := auth.NewTokenAuthority(store, store, cfg.Auth.TokenTTL)
	gate := middleware.NewAuthGate(authority, logger, metrics)
	accountHandlers := accounts.NewHandlers(accounts.NewService(store), authority, logger, metrics)
	bookHandlers := books.NewHandlers(books.NewService(store), logger)

	apiServer := api.NewServer(api.Options{
		Logger:        logger,
		Metrics:       metrics,
		Gate:          gate,
		Accounts:      accountHandlers,
		Books:         bookHandlers,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		EnableTracing: cfg.Observability.OTelEnabled,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Expired-token sweeper
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Auth.SweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		purged, err := authority.Sweep(sweepCtx)
		if err != nil {
			logger.WithError(err).Error("token sweep failed")
			return
		}
		if purged > 0 {
			logger.WithField("purged", purged).Info("expired tokens swept")
			if metrics != nil {
				metrics.TokensSweptTotal.Add(float64(purged))
			}
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Auth.SweepSchedule, err)
	}
	if reporter, ok := store.(interface{ ReportPoolStats() }); ok && metrics != nil {
		if _, err := scheduler.AddFunc("@every 15s", reporter.ReportPoolStats); err != nil {
			return fmt.Errorf("failed to schedule pool stats reporting: %w", err)
		}
	}
	scheduler.Start()

	// Shutdown wiring
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-shutdownCtx.Done():
			return fmt.Errorf("sweeper did not stop in time")
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return closeStore()
	})
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
	})

	// Serve
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health/metrics listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return g.Wait()
}

// buildStorage wires the configured backend and returns the combined
// store, a health checker over its dependencies, and a close function.
func buildStorage(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (stores, *observability.HealthChecker, func() error, error) {
	switch cfg.Storage.Type {
	case "memory":
		logger.Warn("using in-memory storage; data will not survive a restart")
		store := memory.NewStore()
		return store, observability.NewHealthChecker(nil, nil), func() error { return nil }, nil

	case "postgres":
		db, err := postgres.Connect(cfg.Storage)
		if err != nil {
			return nil, nil, nil, err
		}

		migrateCtx, cancel := context.WithTimeout(ctx, cfg.Storage.PostgresTimeout)
		defer cancel()
		if err := postgres.Migrate(migrateCtx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		var cache *postgres.Cache
		if cfg.Storage.CacheEnabled {
			cache, err = postgres.NewCache(cfg.Storage, logger, metrics)
			if err != nil {
				db.Close()
				return nil, nil, nil, err
			}
			logger.Info("redis cache enabled")
		}

		store := postgres.NewStore(db, cache, logger, metrics)
		checker := observability.NewHealthChecker(db, cacheClient(cache))
		return store, checker, store.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// cacheClient unwraps the Redis connection for the health checker
func cacheClient(cache *postgres.Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	return cache.Client()
}
