package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ranlab/bizdir-backend/config"
	"github.com/ranlab/bizdir-backend/internal/app/controller"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/cache"
	"github.com/ranlab/bizdir-backend/internal/db"
	"github.com/ranlab/bizdir-backend/internal/middleware"
	"github.com/ranlab/bizdir-backend/internal/router"
	"github.com/ranlab/bizdir-backend/internal/scheduler"
	"github.com/ranlab/bizdir-backend/internal/storage"
	ws "github.com/ranlab/bizdir-backend/internal/websocket"
	"github.com/ranlab/bizdir-backend/pkg/auth0"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
	redisclient "github.com/ranlab/bizdir-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logFormat := "console"
	if cfg.Server.Environment == "production" {
		logFormat = "json"
	}
	logger.Initialize(logger.Config{
		Level:       cfg.Server.LogLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting business directory backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Server.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Identity cache: Redis when enabled, otherwise process memory
	var identityCache cache.IdentityCache
	if cfg.Redis.Enabled {
		if err := redisclient.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redisclient.Close()
		identityCache = cache.NewRedisIdentityCache(redisclient.GetClient(), cfg.Cache.KeyPrefix)
	} else {
		logger.Warn("Redis disabled, identity cache is per process")
		identityCache = cache.NewMemoryIdentityCache()
	}

	identityProvider, err := auth0.NewClient(auth0.Config{
		Domain:       cfg.Auth0.Domain,
		ClientID:     cfg.Auth0.ClientID,
		ClientSecret: cfg.Auth0.ClientSecret,
		Audience:     cfg.Auth0.Audience,
		Timeout:      cfg.Auth0.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to create identity provider client", err)
	}

	// Export snapshots are optional
	var objectStore service.ObjectStore
	if cfg.S3.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, storage.S3Options{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			BaseURL:         cfg.S3.BaseURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", err)
		}
		objectStore = s3Storage
	} else {
		logger.Warn("EXPORT_S3_BUCKET not set, export snapshots disabled")
	}

	// Initialize repositories
	filters := repository.NewFilterAggregator()
	regionRepo := repository.NewRegionRepository(db.GetDB(), filters)
	businessRepo := repository.NewBusinessRepository(db.GetDB(), filters)
	editRepo := repository.NewEditRequestRepository(db.GetDB())

	// Live edit feed
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize services
	gate := service.NewIdentityService(identityProvider, identityCache, regionRepo, cfg.Cache.IdentityTTL, m)
	applier := service.NewEditRequestApplier(businessRepo, editRepo, cfg.Edits.ApplyConcurrency, m)
	editService := service.NewEditRequestService(editRepo, gate, applier, hub, m)
	regionService := service.NewRegionService(regionRepo, gate, m)
	businessService := service.NewBusinessService(businessRepo, gate)
	exportService := service.NewExportService(businessRepo, objectStore, cfg.S3.PresignTTL)
	userService := service.NewUserService(identityProvider, gate)

	// Background jobs
	reconcileScheduler := scheduler.NewFilterReconcileScheduler(regionService, cfg.Scheduler.FilterReconcileSpec)
	if err := reconcileScheduler.Start(); err != nil {
		logger.Fatal("Failed to start filter reconcile scheduler", err)
	}
	defer reconcileScheduler.Stop()

	// Initialize controllers
	r := router.NewRouter(
		controller.NewEditRequestController(editService),
		controller.NewRegionController(regionService),
		controller.NewBusinessController(businessService, exportService),
		controller.NewUserController(userService),
		controller.NewCacheController(gate),
		controller.NewStreamController(hub, regionService, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(gate),
		m,
		registry,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	stop()

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", err)
	}
	logger.Info("Server stopped successfully")
}
