// Package main provides the entry point for the hybrid paper service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/auth"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/cache"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/coordinator"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/database"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/docstore"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/events"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/query"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/repository"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/server"
	httpserver "github.com/PROFESSOR-DJ/DBMS-Backend/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger, logCloser, err := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log output: %v\n", err)
		}
	}()
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("hybrid-paper-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("relational store connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to MongoDB.
	mongoClient, err := docstore.Connect(ctx, &cfg.Mongo, logger)
	if err != nil {
		return fmt.Errorf("connect to document store: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect document store")
		}
	}()

	if cfg.Mongo.EnsureIndexes {
		names, err := docstore.EnsureIndexes(ctx, mongoClient.Papers())
		if err != nil {
			return fmt.Errorf("ensure document indexes: %w", err)
		}
		logger.Info().Strs("indexes", names).Msg("document indexes ensured")
	}

	// Create store adapters.
	relationalStore := repository.NewPgPaperRepository(db)
	documentStore := docstore.NewMongoPaperStore(mongoClient.Papers())
	userRepo := repository.NewPgUserRepository(db)

	// Optional filter-option cache.
	dispatchOpts := []query.Option{
		query.WithTimeout(cfg.Store.ReadTimeout),
		query.WithMetrics(metrics),
		query.WithLogger(logger),
	}
	coordOpts := []coordinator.Option{
		coordinator.WithWriteTimeout(cfg.Store.WriteTimeout),
		coordinator.WithMetrics(metrics),
		coordinator.WithLogger(logger),
	}
	var (
		redisClient *redis.Client
		cachePinger httpserver.Pinger
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, filter options will not be cached")
		} else {
			filterCache := cache.NewFilterCache(redisClient, cfg.Redis.FilterOptionsTTL, metrics, logger)
			dispatchOpts = append(dispatchOpts, query.WithFilterCache(filterCache))
			coordOpts = append(coordOpts, coordinator.WithCache(filterCache))
			cachePinger = filterCache
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("filter option cache enabled")
		}
	}

	// Dual-write outcome events.
	publisher := events.New(&cfg.Kafka, metrics, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()
	coordOpts = append(coordOpts, coordinator.WithPublisher(publisher))

	// Reads, hybrid reads and dual writes.
	dispatcher := query.NewDispatcher(router.New(), map[domain.Store]query.Reader{
		domain.StoreRelational: relationalStore,
		domain.StoreDocument:   documentStore,
	}, dispatchOpts...)
	hybrid := query.NewHybrid(relationalStore, documentStore, cfg.Store.ReadTimeout)
	coord := coordinator.New(relationalStore, documentStore, coordOpts...)

	// Authentication.
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	accounts := auth.NewService(userRepo, tokens, cfg.Auth.BcryptCost, logger)

	// gRPC health listener with per-store status.
	storeHealth := server.NewStoreHealth(map[domain.Store]server.Pinger{
		domain.StoreRelational: db,
		domain.StoreDocument:   mongoClient,
	}, logger)
	grpcServer := server.NewGRPCServer(logger)
	storeHealth.Register(grpcServer)

	grpcAddr := cfg.Server.GRPCAddress()
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	// HTTP REST API.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Reads:    dispatcher,
		Hybrid:   hybrid,
		Writes:   coord,
		Accounts: accounts,
		Tokens:   tokens,
		Stores: map[domain.Store]httpserver.Pinger{
			domain.StoreRelational: db,
			domain.StoreDocument:   mongoClient,
		},
		Cache:     cachePinger,
		Metrics:   metrics,
		RateLimit: cfg.RateLimit,
	}, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 3)

	go func() {
		logger.Info().Str("address", grpcAddr).Msg("gRPC health server starting")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Sync monitor refreshes store health and the discrepancy gauge.
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	monitor := coordinator.NewSyncMonitor(coord, storeHealth, cfg.Store.SyncInterval, cfg.Store.ReadTimeout, logger)
	go func() {
		defer close(monitorDone)
		monitor.Run(monitorCtx)
	}()

	readyLog := logger.Info().
		Str("grpc_address", grpcAddr).
		Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("hybrid-paper-service is ready")

	// Wait for shutdown signal or server error.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server error")
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down hybrid-paper-service")
	stopMonitor()
	<-monitorDone
	storeHealth.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("gRPC server forced shutdown due to timeout")
		grpcServer.Stop()
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}

	logger.Info().Msg("hybrid-paper-service shutdown complete")
	return runErr
}
