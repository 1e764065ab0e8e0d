// Package dataset loads the coral database from its plain-file form: one
// delimited metadata table plus one observation table per record, named by
// record identifier.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// Dataset holds one fully loaded analysis session's worth of data. All
// downstream transformations derive new tables and never mutate these.
type Dataset struct {
	Records      []*models.Record
	Observations []*models.Observation
	ByID         map[string]*models.Record
}

// LoadResult contains load statistics
type LoadResult struct {
	TotalFiles        int
	TotalRecords      int
	TotalObservations int
	SkippedRows       int
	Duration          time.Duration
	Errors            []string
}

// Loader reads the CSV form of the database
type Loader struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewLoader creates a new dataset loader
func NewLoader(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	return &Loader{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LoadDirectory loads the metadata table and every per-record observation
// file found next to it. Records without an observation file are kept with
// metadata only; observation files without a metadata row are an error.
func (l *Loader) LoadDirectory(ctx context.Context, metadataPath, obsDir string) (*Dataset, *LoadResult, error) {
	startTime := time.Now()

	l.logger.Info(ctx, "[LOAD_START] Starting dataset load", logging.Fields{
		"metadata_path": metadataPath,
		"obs_dir":       obsDir,
		"stage":         "INITIALIZATION",
	})

	result := &LoadResult{
		Errors: make([]string, 0),
	}

	records, skipped, err := ReadMetadata(metadataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read metadata table: %w", err)
	}
	result.TotalRecords = len(records)
	result.SkippedRows += skipped
	if skipped > 0 {
		l.metrics.LoadErrorsTotal.WithLabelValues("metadata_row").Add(float64(skipped))
	}

	ds := &Dataset{
		Records: records,
		ByID:    make(map[string]*models.Record, len(records)),
	}
	for _, rec := range records {
		ds.ByID[rec.RecordID] = rec
	}

	files, err := filepath.Glob(filepath.Join(obsDir, "*.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read observation directory: %w", err)
	}
	result.TotalFiles = len(files)

	l.logger.Info(ctx, "[LOAD_FILES] Found observation files", logging.Fields{
		"file_count":   len(files),
		"record_count": len(records),
		"stage":        "FILE_DISCOVERY",
	})

	for _, filePath := range files {
		fileName := filepath.Base(filePath)
		recordID := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		if _, ok := ds.ByID[recordID]; !ok {
			return nil, nil, fmt.Errorf("observation file %s has no metadata row", fileName)
		}

		obs, skipped, err := ReadObservations(filePath, recordID)
		if err != nil {
			errMsg := fmt.Sprintf("failed to load %s: %v", filePath, err)
			result.Errors = append(result.Errors, errMsg)
			l.logger.Error(ctx, "[LOAD_FILE_ERROR] Observation file load failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			l.metrics.RecordLoadError("file_error")
			continue
		}

		ds.Observations = append(ds.Observations, obs...)
		result.TotalObservations += len(obs)
		result.SkippedRows += skipped
		if skipped > 0 {
			l.metrics.LoadErrorsTotal.WithLabelValues("observation_row").Add(float64(skipped))
		}

		l.logger.Debug(ctx, "[LOAD_FILE] Observation file loaded", logging.Fields{
			"record_id":    recordID,
			"observations": len(obs),
			"skipped_rows": skipped,
		})
	}

	result.Duration = time.Since(startTime)
	l.metrics.LoadDuration.Observe(result.Duration.Seconds())
	l.metrics.LoadRecordsTotal.Add(float64(result.TotalRecords))
	l.metrics.LoadObservationsTotal.Add(float64(result.TotalObservations))

	l.logger.Info(ctx, "[LOAD_COMPLETE] Dataset load completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"total_observations": result.TotalObservations,
		"skipped_rows":       result.SkippedRows,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return ds, result, nil
}

// ReadMetadata reads the metadata table: one row per record. Malformed rows
// are skipped and counted, not fatal.
func ReadMetadata(path string) ([]*models.Record, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open metadata table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	// Ragged rows are handled per cell, not rejected wholesale
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read metadata header: %w", err)
	}

	col := headerIndex(header)
	for _, required := range []string{"record_id", "latitude", "longitude", "start_year", "end_year"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("metadata table missing column %q", required)
		}
	}

	var records []*models.Record
	skipped := 0
	seen := make(map[string]bool)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read metadata rows: %w", err)
	}

	for _, row := range rows {
		raw := models.RawMetadataRow{
			RecordID:             cell(row, col, "record_id"),
			SiteName:             cell(row, col, "site_name"),
			Latitude:             cell(row, col, "latitude"),
			Longitude:            cell(row, col, "longitude"),
			Species:              cell(row, col, "species"),
			Proxies:              cell(row, col, "proxies"),
			NominalResolution:    cell(row, col, "nominal_resolution"),
			MinSamplesPerYear:    cell(row, col, "min_samples_per_year"),
			MaxSamplesPerYear:    cell(row, col, "max_samples_per_year"),
			MeanSamplesPerYear:   cell(row, col, "mean_samples_per_year"),
			MedianSamplesPerYear: cell(row, col, "median_samples_per_year"),
			CoverageGroup:        cell(row, col, "coverage_group"),
			StartYear:            cell(row, col, "start_year"),
			EndYear:              cell(row, col, "end_year"),
			SSTCalibration:       cell(row, col, "sst_calibration"),
			HydroCalibration:     cell(row, col, "hydro_calibration"),
			Anomalous:            cell(row, col, "anomalous"),
		}

		rec, err := raw.ToRecord()
		if err != nil {
			skipped++
			continue
		}
		if seen[rec.RecordID] {
			return nil, 0, fmt.Errorf("duplicate metadata row for record %s", rec.RecordID)
		}
		seen[rec.RecordID] = true
		records = append(records, rec)
	}

	return records, skipped, nil
}

// ReadObservations reads one per-record observation file. The first column
// is the decimal-year age; every further header names a proxy series. Wide
// proxy columns are melted to long (record, proxy, age, value) rows, with
// empty cells treated as gaps.
func ReadObservations(path, recordID string) ([]*models.Observation, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open observation file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read observation header: %w", err)
	}
	if len(header) < 2 {
		return nil, 0, fmt.Errorf("observation file %s has no proxy columns", filepath.Base(path))
	}
	if strings.ToLower(strings.TrimSpace(header[0])) != "age" {
		return nil, 0, fmt.Errorf("observation file %s must lead with an age column", filepath.Base(path))
	}

	var observations []*models.Observation
	skipped := 0

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read observation rows: %w", err)
	}

	for _, row := range rows {
		for i := 1; i < len(header) && i < len(row); i++ {
			if strings.TrimSpace(row[i]) == "" {
				continue
			}

			raw := models.RawObservationRow{
				Age:   row[0],
				Proxy: header[i],
				Value: row[i],
			}
			obs, err := raw.ToObservation(recordID)
			if err != nil {
				skipped++
				continue
			}
			observations = append(observations, obs)
		}
	}

	return observations, skipped, nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

func cell(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
