package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"gbr-coraldb/internal/config"
	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
	"gbr-coraldb/internal/repository"
	"gbr-coraldb/internal/services"
	"gbr-coraldb/pkg/database"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

func main() {
	// Parse command-line flags
	metadataPath := flag.String("metadata", "", "Path to the metadata CSV (overrides CORALDB_METADATA_PATH)")
	obsDir := flag.String("observations-dir", "", "Directory containing per-record observation CSVs (overrides CORALDB_OBSERVATIONS_DIR)")
	indexPath := flag.String("index", "", "Path to the SQLite index file (overrides CORALDB_INDEX_PATH)")
	batchSize := flag.Int("batch-size", 0, "Number of observations per insert batch (overrides CORALDB_INDEX_BATCH_SIZE)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *metadataPath != "" {
		cfg.Data.MetadataPath = *metadataPath
	}
	if *obsDir != "" {
		cfg.Data.ObservationsDir = *obsDir
	}
	if *indexPath != "" {
		cfg.Index.Path = *indexPath
	}
	if *batchSize > 0 {
		cfg.Index.BatchSize = *batchSize
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("coraldb-indexer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INDEXER_START] Starting observation indexing", logging.Fields{
		"version":          "1.0.0",
		"metadata_path":    cfg.Data.MetadataPath,
		"observations_dir": cfg.Data.ObservationsDir,
		"index_path":       cfg.Index.Path,
		"batch_size":       cfg.Index.BatchSize,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("coraldb_indexer")

	// Load the dataset from its CSV form
	loader := dataset.NewLoader(logger, metricsCollector)
	ds, loadResult, err := loader.LoadDirectory(ctx, cfg.Data.MetadataPath, cfg.Data.ObservationsDir)
	if err != nil {
		logger.Fatal(ctx, "[INDEXER_ERROR] Failed to load dataset", logging.Fields{
			"metadata_path": cfg.Data.MetadataPath,
		}, err)
	}

	// Initialize index database
	dbConfig := &database.Config{
		Path:         cfg.Index.Path,
		BusyTimeout:  cfg.Index.BusyTimeout,
		MaxOpenConns: cfg.Index.MaxOpenConns,
	}

	db, err := database.NewSQLiteDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INDEXER_ERROR] Failed to open index database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and services
	recordRepo := repository.NewRecordRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(recordRepo, logger, metricsCollector)

	// Index the dataset
	result, err := ingestionService.IndexDataset(ctx, ds, models.DefaultAgeCorrections, cfg.Index.BatchSize)
	if err != nil {
		logger.Fatal(ctx, "[INDEXING_ERROR] Indexing failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INDEXING COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Observation Files:   %d\n", loadResult.TotalFiles)
	fmt.Printf("Records Indexed:     %d\n", result.TotalRecords)
	fmt.Printf("Observations:        %d\n", result.TotalObservations)
	fmt.Printf("Skipped Rows:        %d\n", loadResult.SkippedRows)
	fmt.Printf("Duration:            %v\n", result.Duration)
	fmt.Printf("Observations/Second: %.2f\n", float64(result.TotalObservations)/result.Duration.Seconds())

	if len(loadResult.Errors) > 0 {
		fmt.Printf("\nLoad warnings (%d):\n", len(loadResult.Errors))
		for i, errMsg := range loadResult.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(loadResult.Errors) > 10 {
			fmt.Printf("  ... and %d more\n", len(loadResult.Errors)-10)
		}
	}

	logger.Info(ctx, "[INDEXER_COMPLETE] Indexing completed successfully", logging.Fields{
		"total_records":      result.TotalRecords,
		"total_observations": result.TotalObservations,
		"duration_seconds":   result.Duration.Seconds(),
	})
}
