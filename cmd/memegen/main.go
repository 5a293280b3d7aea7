package main

import (
	"context"
	"flag"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/complytics/memegen/internal/config"
	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/gemini"
	"github.com/complytics/memegen/internal/logger"
	"github.com/complytics/memegen/internal/service"
	"github.com/complytics/memegen/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "memegen",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	name := flag.String("name", "", "Business name")
	website := flag.String("website", "", "Business website")
	about := flag.String("about", "", "Short description of the business")
	rows := flag.String("rows", "all", "Rows to render memes for: 'all' or comma-separated indices, e.g. 0,2,5")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	selection, err := parseRowSelection(*rows)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid -rows value")
	}

	// Initialize artifact storage
	store, err := storage.NewLocalStore(cfg.Export.Dir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	// Initialize the generation client and pipeline services
	genClient := gemini.New(&gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		TextModel:    cfg.Gemini.TextModel,
		ImageModel:   cfg.Gemini.ImageModel,
		TextTimeout:  cfg.Gemini.TextTimeout(),
		ImageTimeout: cfg.Gemini.ImageTimeout(),
	})
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

	// Cancel the run on interrupt; in-flight rows finish on their own terms
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := pipeline.CreateSession()
	ctx = logger.SetSessionID(ctx, session.ID)

	profile := &domain.BusinessProfile{Name: *name, Website: *website, About: *about}
	if _, err := pipeline.SetProfile(session.ID, profile); err != nil {
		appLogger.WithError(err).Fatal("Failed to set business profile")
	}

	table, err := pipeline.GenerateIdeas(ctx, session.ID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to generate idea table")
	}
	appLogger.WithField(logger.FieldCount, len(table)).Info("Idea table generated")

	results, err := pipeline.GenerateMemes(ctx, session.ID, selection)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to generate memes")
	}

	indices := make([]int, 0, len(results))
	for idx := range results {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		r := results[idx]
		if r.Err != nil {
			appLogger.WithField(logger.FieldRow, idx).WithError(r.Err).Warn("Row failed")
			continue
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldRow: idx,
			"path":          r.Artifact.SavedPath,
		}).Info("Meme saved")
	}

	bundle, err := pipeline.Export(ctx, session.ID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to export")
	}

	appLogger.WithFields(logger.Fields{
		"workbook": bundle.WorkbookPath,
		"csv":      bundle.CSVPath,
		"rows":     bundle.RowCount,
	}).Info("Run complete")
}

// parseRowSelection parses the -rows flag: "all" selects every row
// (nil selection), otherwise comma-separated zero-based indices.
func parseRowSelection(value string) ([]int, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || value == "all" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}
