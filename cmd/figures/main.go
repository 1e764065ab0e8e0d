package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gbr-coraldb/internal/archive"
	"gbr-coraldb/internal/charts"
	"gbr-coraldb/internal/config"
	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
	"gbr-coraldb/internal/services"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

func main() {
	// Parse command-line flags
	source := flag.String("source", "csv", "Dataset source: csv or archive")
	outputDir := flag.String("output-dir", "", "Directory for rendered figures (overrides CORALDB_FIGURES_DIR)")
	format := flag.String("format", "", "Figure format: png, svg or pdf (overrides CORALDB_FIGURES_FORMAT)")
	proxy := flag.String("proxy", "SrCa", "Proxy to plot in the time-series figures")
	maxSeries := flag.Int("max-series", 8, "Maximum number of records in the stacked figure")
	stackOffset := flag.Float64("stack-offset", 2.0, "Vertical offset between stacked series")
	exportArchive := flag.String("export-archive", "", "If set, write the loaded dataset as a NetCDF archive to this directory")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *outputDir != "" {
		cfg.Figures.OutputDir = *outputDir
	}
	if *format != "" {
		cfg.Figures.Format = *format
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("coraldb-figures", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[FIGURES_START] Starting figure rendering", logging.Fields{
		"version":    "1.0.0",
		"source":     *source,
		"output_dir": cfg.Figures.OutputDir,
		"format":     cfg.Figures.Format,
		"proxy":      *proxy,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("coraldb_figures")

	// Load the dataset
	var ds *dataset.Dataset
	switch *source {
	case "csv":
		loader := dataset.NewLoader(logger, metricsCollector)
		ds, _, err = loader.LoadDirectory(ctx, cfg.Data.MetadataPath, cfg.Data.ObservationsDir)
	case "archive":
		ds, err = archive.ReadArchive(cfg.Data.ArchiveDir)
	default:
		fmt.Fprintf(os.Stderr, "Unknown source %q (want csv or archive)\n", *source)
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal(ctx, "[FIGURES_ERROR] Failed to load dataset", logging.Fields{
			"source": *source,
		}, err)
	}

	if *exportArchive != "" {
		if err := archive.WriteArchive(ds, *exportArchive); err != nil {
			logger.Fatal(ctx, "[FIGURES_ERROR] Failed to export archive", logging.Fields{
				"archive_dir": *exportArchive,
			}, err)
		}
		logger.Info(ctx, "[ARCHIVE_EXPORTED] Wrote dataset archive", logging.Fields{
			"archive_dir": *exportArchive,
			"records":     len(ds.Records),
		})
	}

	if err := os.MkdirAll(cfg.Figures.OutputDir, 0755); err != nil {
		logger.Fatal(ctx, "[FIGURES_ERROR] Failed to create output directory", logging.Fields{
			"output_dir": cfg.Figures.OutputDir,
		}, err)
	}

	// Initialize services and renderer
	coverageService := services.NewCoverageService(logger, metricsCollector)
	renderer := charts.NewRenderer(logger, metricsCollector)

	figurePath := func(name string) string {
		return filepath.Join(cfg.Figures.OutputDir, name+"."+cfg.Figures.Format)
	}
	var rendered []string
	var failed int

	// Coverage area charts, one per categorization
	for _, cat := range []services.Categorization{services.ByCoverageGroup, services.ByResolution} {
		table, err := coverageService.CoverageTable(ctx, ds, cat, models.DefaultAgeCorrections)
		if err != nil {
			logger.Fatal(ctx, "[FIGURES_ERROR] Failed to build coverage table", logging.Fields{
				"categorization": cat.String(),
			}, err)
		}

		name := "coverage_" + cat.String()
		title := fmt.Sprintf("Temporal coverage by %s", strings.ReplaceAll(cat.String(), "_", " "))
		if err := renderer.CoverageArea(ctx, title, table, figurePath(name)); err != nil {
			logger.Error(ctx, "[RENDER_ERROR] Failed to render coverage chart", logging.Fields{
				"figure": name,
			}, err)
			failed++
		} else {
			rendered = append(rendered, figurePath(name))
		}
	}

	// Site map of all record locations
	if err := renderer.SiteMap(ctx, "Record sites", ds.Records, figurePath("sites")); err != nil {
		logger.Error(ctx, "[RENDER_ERROR] Failed to render site map", logging.Fields{
			"figure": "sites",
		}, err)
		failed++
	} else {
		rendered = append(rendered, figurePath("sites"))
	}

	// Per-proxy time-series figures
	series := proxySeries(ds, *proxy, *maxSeries)
	if len(series) == 0 {
		logger.Warn(ctx, "[FIGURES_SKIP] No records carry the requested proxy", logging.Fields{
			"proxy": *proxy,
		})
	} else {
		name := "timeseries_" + strings.ToLower(*proxy)
		if err := renderer.TimeSeries(ctx, *proxy+" records", *proxy, series[:1], figurePath(name)); err != nil {
			logger.Error(ctx, "[RENDER_ERROR] Failed to render time series", logging.Fields{
				"figure": name,
			}, err)
			failed++
		} else {
			rendered = append(rendered, figurePath(name))
		}

		name = "stacked_" + strings.ToLower(*proxy)
		if err := renderer.StackedSeries(ctx, *proxy+" records (stacked)", series, *stackOffset, figurePath(name)); err != nil {
			logger.Error(ctx, "[RENDER_ERROR] Failed to render stacked series", logging.Fields{
				"figure": name,
			}, err)
			failed++
		} else {
			rendered = append(rendered, figurePath(name))
		}
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("FIGURES COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Records Loaded: %d\n", len(ds.Records))
	fmt.Printf("Observations:   %d\n", len(ds.Observations))
	fmt.Printf("Figures:        %d\n", len(rendered))
	for _, path := range rendered {
		fmt.Printf("  - %s\n", path)
	}
	if failed > 0 {
		fmt.Printf("Failed:         %d\n", failed)
	}

	logger.Info(ctx, "[FIGURES_COMPLETE] Figure rendering finished", logging.Fields{
		"rendered": len(rendered),
		"failed":   failed,
	})

	if failed > 0 {
		os.Exit(1)
	}
}

// proxySeries collects the observations of every record carrying the proxy,
// one series per record, capped at limit records in record-ID order.
func proxySeries(ds *dataset.Dataset, proxy string, limit int) []charts.Series {
	byRecord := make(map[string][]*models.Observation)
	for _, obs := range ds.Observations {
		if obs.Proxy == proxy {
			byRecord[obs.RecordID] = append(byRecord[obs.RecordID], obs)
		}
	}

	ids := make([]string, 0, len(byRecord))
	for id := range byRecord {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	series := make([]charts.Series, 0, len(ids))
	for _, id := range ids {
		series = append(series, charts.Series{
			Name:         id + " " + proxy,
			Observations: byRecord[id],
		})
	}
	return series
}
