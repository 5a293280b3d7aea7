package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complytics/memegen/internal/api"
	"github.com/complytics/memegen/internal/api/middleware"
	"github.com/complytics/memegen/internal/config"
	"github.com/complytics/memegen/internal/gemini"
	"github.com/complytics/memegen/internal/logger"
	"github.com/complytics/memegen/internal/service"
	"github.com/complytics/memegen/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "memegen-api",
	})
	logger.SetDefaultLogger(appLogger)

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize artifact storage
	store, err := storage.NewLocalStore(cfg.Export.Dir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	// Initialize the generation client
	genClient := gemini.New(&gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		TextModel:    cfg.Gemini.TextModel,
		ImageModel:   cfg.Gemini.ImageModel,
		TextTimeout:  cfg.Gemini.TextTimeout(),
		ImageTimeout: cfg.Gemini.ImageTimeout(),
	})

	// Initialize pipeline services
	builder := service.NewPromptBuilder(&service.PromptConfig{Rows: cfg.Generation.Rows})
	parser := service.NewTableParser()
	assembler := service.NewExportAssembler(store, appLogger, &service.ExportFilesConfig{
		CSVFile:      cfg.Export.CSVFile,
		WorkbookFile: cfg.Export.WorkbookFile,
	})
	batch := service.NewBatchProcessor(genClient, builder, store, appLogger, &service.BatchConfig{
		Workers:    cfg.Generation.Workers,
		RetryCount: cfg.Generation.RetryCount,
	})
	pipeline := service.NewPipeline(genClient, builder, parser, batch, assembler, appLogger)

	// Setup router
	router := api.SetupRouter(pipeline, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":        cfg.Server.Port,
			"text_model":  cfg.Gemini.TextModel,
			"image_model": cfg.Gemini.ImageModel,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}

	appLogger.Info("Server exited")
}
