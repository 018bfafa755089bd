package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amanihub/amani/internal/api"
	"github.com/amanihub/amani/internal/config"
	"github.com/amanihub/amani/internal/logger"
	"github.com/amanihub/amani/internal/queue"
	"github.com/amanihub/amani/internal/repository"
	"github.com/amanihub/amani/internal/service"
	"github.com/amanihub/amani/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	imageJobRepo := repository.NewImageJobRepository(db)
	reportRepo := repository.NewReportRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Initialize object storage (supports MinIO, R2, S3)
	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Ensure bucket exists
	ctx := context.Background()
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	stage := storage.NewStage(objectStorage, cfg.Jobs.RawPrefix, cfg.Jobs.OutputPrefix)

	// Connect to the broker and build the producer
	redisClient, err := queue.Connect(ctx, &cfg.Redis)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to broker")
	}
	defer redisClient.Close()

	producer := queue.NewProducer(redisClient, cfg.Redis.Queue)

	// Initialize services
	imageJobService := service.NewImageJobService(
		imageJobRepo,
		stage,
		producer,
		appLogger,
		&service.ImageJobConfig{
			MaxFetchSize: cfg.Jobs.MaxFetchSize,
		},
	)

	reportService := service.NewReportService(
		reportRepo,
		producer,
		appLogger,
		&service.ReportConfig{
			StaleAfter: cfg.Jobs.StaleAfter,
		},
	)

	eventService := service.NewEventService(eventRepo, imageJobService, appLogger)

	// Setup router
	router := api.SetupRouter(api.RouterDeps{
		Config:    cfg,
		Logger:    appLogger,
		DB:        db,
		Redis:     redisClient,
		ImageJobs: imageJobService,
		Reports:   reportService,
		Events:    eventService,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
