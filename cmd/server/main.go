package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gaguero/attendant-sub000/internal/batch"
	"github.com/gaguero/attendant-sub000/internal/completeness"
	"github.com/gaguero/attendant-sub000/internal/config"
	"github.com/gaguero/attendant-sub000/internal/database"
	"github.com/gaguero/attendant-sub000/internal/handlers"
	"github.com/gaguero/attendant-sub000/internal/metrics"
	"github.com/gaguero/attendant-sub000/internal/scheduler"
	"github.com/gaguero/attendant-sub000/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting Completeness Engine",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Environment))

	// Connect to database and run migrations
	databaseURL := cfg.GetDatabaseURL()

	if err := database.RunMigrations(cfg.Database, databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.Connect(cfg.Database, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	configRepo := database.NewConfigRepository(db, logger)
	ruleRepo := database.NewRuleRepository(db, logger)
	entityRepo := database.NewEntityRepository(db, logger)

	// Initialize completeness scorer with cached config store
	configStore := completeness.NewCachedConfigStore(configRepo, cfg.Completeness.ConfigCacheTTL)
	scorer := completeness.NewService(configStore, logger)

	// Initialize metrics collector
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// Initialize rule validator with cached rule source
	ruleCache := validation.NewCachedRuleSource(ruleRepo, cfg.Validation.RuleCacheTTL)
	ruleValidator := validation.NewValidator(ruleCache, collector, logger)

	// Seed default business rules
	if cfg.Validation.SeedDefaults {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
		validation.SeedDefaults(seedCtx, ruleRepo, logger)
		seedCancel()
	}

	// Initialize batch runner and recompute scheduler
	runner := batch.NewRunner(
		entityRepo,
		scorer,
		collector,
		cfg.Completeness.EntityTypes,
		cfg.Completeness.BatchPageSize,
		cfg.Completeness.BatchWorkers,
		logger,
	)

	sched := scheduler.NewScheduler(cfg.Scheduler, runner, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Initialize HTTP handlers
	handler := handlers.NewHandler(
		scorer,
		ruleValidator,
		ruleRepo,
		ruleCache,
		entityRepo,
		sched,
		collector,
		logger,
	)

	router := handler.SetupRoutes()

	// Add Prometheus metrics endpoint
	if cfg.Monitoring.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	// Create HTTP server
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Graceful shutdown
	logger.Info("Starting graceful shutdown")

	sched.Stop()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer httpCancel()
	if err := httpSrv.Shutdown(httpCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
