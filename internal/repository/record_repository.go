package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/database"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// RecordRepository provides data access for the SQLite index of the
// coral database
type RecordRepository interface {
	// Record operations
	CreateRecord(ctx context.Context, record *models.Record) error
	GetRecord(ctx context.Context, recordID string) (*models.Record, error)
	ListRecords(ctx context.Context, query RecordQuery) ([]*models.Record, error)

	// Observation operations
	CreateObservationsBatch(ctx context.Context, observations []*models.IndexedObservation) error
	GetObservations(ctx context.Context, query ObservationQuery) ([]*models.IndexedObservation, int, error)

	// Aggregation operations
	CountByYearCategory(ctx context.Context, categorization string) ([]models.YearCategoryCount, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordQuery defines filters for querying record metadata, mirroring the
// in-memory RecordFilter
type RecordQuery struct {
	ProxyContains    *string
	Resolutions      []string
	CoverageGroups   []string
	MinYear          *int
	MaxYear          *int
	MinLat           *float64
	MaxLat           *float64
	MinLon           *float64
	MaxLon           *float64
	SSTCalibration   *bool
	HydroCalibration *bool
	ExcludeAnomalous bool
	Limit            int
	Offset           int
}

// ObservationQuery defines filters for querying indexed observations
type ObservationQuery struct {
	RecordID *string
	Proxy    *string
	MinAge   *float64
	MaxAge   *float64
	Limit    int
	Offset   int
}

// recordRepository implements RecordRepository
type recordRepository struct {
	db      *database.SQLiteDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.SQLiteDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RecordRepository {
	return &recordRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateRecord creates a record metadata row
func (r *recordRepository) CreateRecord(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO records (
			record_id, site_name, latitude, longitude, species, proxies,
			nominal_resolution,
			min_samples_per_year, max_samples_per_year,
			mean_samples_per_year, median_samples_per_year,
			coverage_group, start_year, end_year,
			sst_calibration, hydro_calibration, anomalous
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, "insert_record", query,
		record.RecordID,
		record.SiteName,
		record.Latitude,
		record.Longitude,
		record.Species,
		record.Proxies,
		record.NominalResolution,
		record.MinSamplesPerYear,
		record.MaxSamplesPerYear,
		record.MeanSamplesPerYear,
		record.MedianSamplesPerYear,
		record.CoverageGroup,
		record.StartYear,
		record.EndYear,
		record.SSTCalibration,
		record.HydroCalibration,
		record.Anomalous,
	)

	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_RECORD] Record created", logging.Fields{
		"record_id": record.RecordID,
		"site_name": record.SiteName,
	})

	return nil
}

// GetRecord retrieves a record's metadata by ID
func (r *recordRepository) GetRecord(ctx context.Context, recordID string) (*models.Record, error) {
	query := `
		SELECT record_id, site_name, latitude, longitude, species, proxies,
		       nominal_resolution,
		       min_samples_per_year, max_samples_per_year,
		       mean_samples_per_year, median_samples_per_year,
		       coverage_group, start_year, end_year,
		       sst_calibration, hydro_calibration, anomalous
		FROM records
		WHERE record_id = ?
	`

	var record models.Record
	err := r.db.GetContext(ctx, "get_record", &record, query, recordID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "record",
			ID:       recordID,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return &record, nil
}

// ListRecords retrieves record metadata with filtering
func (r *recordRepository) ListRecords(ctx context.Context, q RecordQuery) ([]*models.Record, error) {
	query := `
		SELECT record_id, site_name, latitude, longitude, species, proxies,
		       nominal_resolution,
		       min_samples_per_year, max_samples_per_year,
		       mean_samples_per_year, median_samples_per_year,
		       coverage_group, start_year, end_year,
		       sst_calibration, hydro_calibration, anomalous
		FROM records
		WHERE 1=1
	`
	args := []interface{}{}

	if q.ProxyContains != nil {
		query += " AND instr(proxies, ?) > 0"
		args = append(args, *q.ProxyContains)
	}

	if len(q.Resolutions) > 0 {
		query += " AND nominal_resolution IN (?" + strings.Repeat(", ?", len(q.Resolutions)-1) + ")"
		for _, res := range q.Resolutions {
			args = append(args, res)
		}
	}

	if len(q.CoverageGroups) > 0 {
		query += " AND coverage_group IN (?" + strings.Repeat(", ?", len(q.CoverageGroups)-1) + ")"
		for _, grp := range q.CoverageGroups {
			args = append(args, grp)
		}
	}

	if q.MinYear != nil {
		query += " AND end_year >= ?"
		args = append(args, *q.MinYear)
	}

	if q.MaxYear != nil {
		query += " AND start_year <= ?"
		args = append(args, *q.MaxYear)
	}

	if q.MinLat != nil {
		query += " AND latitude >= ?"
		args = append(args, *q.MinLat)
	}

	if q.MaxLat != nil {
		query += " AND latitude <= ?"
		args = append(args, *q.MaxLat)
	}

	if q.MinLon != nil {
		query += " AND longitude >= ?"
		args = append(args, *q.MinLon)
	}

	if q.MaxLon != nil {
		query += " AND longitude <= ?"
		args = append(args, *q.MaxLon)
	}

	if q.SSTCalibration != nil {
		query += " AND sst_calibration = ?"
		args = append(args, *q.SSTCalibration)
	}

	if q.HydroCalibration != nil {
		query += " AND hydro_calibration = ?"
		args = append(args, *q.HydroCalibration)
	}

	if q.ExcludeAnomalous {
		query += " AND anomalous = 0"
	}

	query += " ORDER BY record_id"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	var records []*models.Record
	err := r.db.SelectContext(ctx, "list_records", &records, query, args...)

	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// CreateObservationsBatch inserts observations in a single transaction
func (r *recordRepository) CreateObservationsBatch(ctx context.Context, observations []*models.IndexedObservation) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IndexBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	// Begin transaction
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Prepare statement
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (record_id, proxy, age, year, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	// Execute batch
	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.RecordID,
			obs.Proxy,
			obs.Age,
			obs.Year,
			obs.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IndexRecordsTotal.Add(float64(len(observations)))

	return nil
}

// GetObservations retrieves indexed observations with filtering and pagination
func (r *recordRepository) GetObservations(ctx context.Context, q ObservationQuery) ([]*models.IndexedObservation, int, error) {
	// Build query with filters
	query := `
		SELECT record_id, proxy, age, year, value
		FROM observations
		WHERE 1=1
	`
	args := []interface{}{}

	if q.RecordID != nil {
		query += " AND record_id = ?"
		args = append(args, *q.RecordID)
	}

	if q.Proxy != nil {
		query += " AND proxy = ?"
		args = append(args, *q.Proxy)
	}

	if q.MinAge != nil {
		query += " AND age > ?"
		args = append(args, *q.MinAge)
	}

	if q.MaxAge != nil {
		query += " AND age < ?"
		args = append(args, *q.MaxAge)
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_observations", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY record_id, proxy, age"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	var observations []*models.IndexedObservation
	err = r.db.SelectContext(ctx, "get_observations", &observations, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get observations: %w", err)
	}

	return observations, totalCount, nil
}

// CountByYearCategory computes "records observed in category C during year
// Y" in SQL: distinct records per calendar year, grouped by the metadata
// label named by categorization ("coverage_group" or "resolution"). The
// result is sparse; callers join it onto a dense grid for rendering.
func (r *recordRepository) CountByYearCategory(ctx context.Context, categorization string) ([]models.YearCategoryCount, error) {
	var labelColumn string
	switch categorization {
	case "coverage_group":
		labelColumn = "r.coverage_group"
	case "resolution":
		labelColumn = "r.nominal_resolution"
	default:
		return nil, fmt.Errorf("unknown categorization %q", categorization)
	}

	query := fmt.Sprintf(`
		SELECT o.year AS year, %s AS category, COUNT(DISTINCT o.record_id) AS count
		FROM observations o
		JOIN records r ON r.record_id = o.record_id
		GROUP BY o.year, %s
		ORDER BY o.year, category
	`, labelColumn, labelColumn)

	var rows []struct {
		Year     int    `db:"year"`
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, "count_year_category", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count by year and category: %w", err)
	}

	counts := make([]models.YearCategoryCount, len(rows))
	for i, row := range rows {
		rank := models.CoverageRank(row.Category)
		if categorization == "resolution" {
			rank = models.ResolutionRank(row.Category)
		}
		counts[i] = models.YearCategoryCount{
			Year:     row.Year,
			Category: row.Category,
			Rank:     rank,
			Count:    row.Count,
		}
	}

	return counts, nil
}

// HealthCheck performs a repository health check
func (r *recordRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
