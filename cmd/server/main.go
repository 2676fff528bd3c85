package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/api"
	"github.com/pranav-ddreg/vitalic-docstore/internal/config"
	"github.com/pranav-ddreg/vitalic-docstore/internal/jobs"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository/mongo"
	"github.com/pranav-ddreg/vitalic-docstore/internal/service"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	// --- Logging ---
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("starting docstore server", zap.String("address", cfg.Server.Address))

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	// Runs in the background; the unique (parent, title) folder index backs
	// idempotent folder creation, so a slow index build only delays that
	// guarantee, it never blocks startup.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
			logger.Error("index creation failed", zap.Error(err))
			return
		}
		logger.Info("index creation completed")
	}()

	// --- Initialize Storage ---
	objectStore, err := storage.NewS3Store(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize object store", zap.Error(err))
	}

	// --- Initialize Repositories ---
	folderRepo := mongo.NewMongoFolderRepository(appDB)
	fileRepo := mongo.NewMongoFileRepository(appDB)
	jobRepo := mongo.NewMongoUploadJobRepository(appDB)
	ownerRegistry := mongo.NewMongoOwnerRegistry(appDB)

	// --- Initialize Services ---
	treeService := service.NewTreeService(folderRepo, fileRepo, ownerRegistry)
	ingestService := service.NewIngestService(jobRepo, treeService, objectStore, logger)
	exportService := service.NewExportService(treeService, folderRepo, objectStore, logger)

	runner := jobs.NewRunner(cfg.Ingest.Workers, cfg.Ingest.QueueSize, logger)
	uploadService := service.NewUploadService(objectStore, treeService, jobRepo, ownerRegistry, ingestService, runner, logger)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	uploadHandler := api.NewUploadHandler(uploadService, ingestService, objectStore)
	treeHandler := api.NewTreeHandler(treeService, exportService, objectStore)
	api.SetupRoutes(router, cfg.JWT.Secret, uploadHandler, treeHandler)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Drain HTTP first so no new jobs are submitted, then let in-flight
	// ingestions finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}

	ctxRunner, cancelRunner := context.WithTimeout(context.Background(), cfg.Ingest.ShutdownTimeout)
	defer cancelRunner()
	if err := runner.Shutdown(ctxRunner); err != nil {
		logger.Error("ingestion runner did not drain in time", zap.Error(err))
	}

	logger.Info("server exiting")
}
