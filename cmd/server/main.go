// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockpilot/backend-go/internal/analysis"
	"github.com/stockpilot/backend-go/internal/api"
	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/config"
	"github.com/stockpilot/backend-go/internal/policy"
	"github.com/stockpilot/backend-go/internal/reorder"
	"github.com/stockpilot/backend-go/internal/repository/postgres"
	"github.com/stockpilot/backend-go/internal/service"
	"github.com/stockpilot/backend-go/internal/storage"
	"github.com/stockpilot/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	inventoryRepo := postgres.NewInventoryRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	suggestionRepo := postgres.NewSuggestionRepository(db)
	patternRepo := postgres.NewPatternRepository(db)

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Forecast cache unavailable, running without memoization")
		forecastCache = cache.NewNoopForecastCache()
	}
	jobStore, err := cache.NewJobStore(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis job store unavailable, falling back to memory")
		jobStore = cache.NewMemoryJobStore(time.Duration(cfg.Cache.JobTTLSeconds) * time.Second)
	}

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		objects = client
	}

	// Initialize services
	resolver := policy.NewResolver(policyRepo)
	engine := reorder.NewEngine(
		inventoryRepo, inventoryRepo, suggestionRepo, resolver,
		time.Duration(cfg.Analysis.SuggestionTTLHours)*time.Hour,
	)
	forecastService := service.NewForecastService(
		inventoryRepo, inventoryRepo, patternRepo,
		forecastCache, cfg.Analysis.LookbackDays,
	)
	reorderService := service.NewReorderService(suggestionRepo, policyRepo, engine)

	exporter := analysis.NewExporter(cfg.Analysis.ExportDir, objects)
	orchestrator := analysis.NewOrchestrator(
		jobStore, inventoryRepo, engine, forecastService, exporter,
		cfg.Analysis.WorkerCount, cfg.Analysis.ForecastHorizonDays,
	)

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler := analysis.NewScheduler(policyRepo, orchestrator, forecastService, cfg.Analysis.SchedulerMinInterval)
	go scheduler.Run(schedCtx)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		ReorderService:  reorderService,
		ForecastService: forecastService,
		Orchestrator:    orchestrator,
		Exporter:        exporter,
	}, cfg.Server.AllowedOrigins, func() error {
		return db.Health(context.Background())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	stopScheduler()
	orchestrator.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
