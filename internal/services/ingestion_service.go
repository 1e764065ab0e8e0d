package services

import (
	"context"
	"fmt"
	"time"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
	"gbr-coraldb/internal/repository"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// IngestionService writes a loaded dataset into the SQLite index
type IngestionService struct {
	repo    repository.RecordRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains indexing statistics
type IngestionResult struct {
	TotalRecords      int
	TotalObservations int
	Duration          time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.RecordRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IndexDataset writes every record and observation of the dataset into the
// index. Calendar years are derived once here, with the given correction
// table, so SQL aggregations never re-run the date conversion.
func (s *IngestionService) IndexDataset(ctx context.Context, ds *dataset.Dataset, corrections models.AgeCorrections, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INDEX_START] Starting dataset indexing", logging.Fields{
		"records":      len(ds.Records),
		"observations": len(ds.Observations),
		"batch_size":   batchSize,
		"stage":        "INITIALIZATION",
	})

	result := &IngestionResult{}

	for _, rec := range ds.Records {
		if err := s.repo.CreateRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to index record %s: %w", rec.RecordID, err)
		}
		result.TotalRecords++
	}

	batch := make([]*models.IndexedObservation, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.repo.CreateObservationsBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		result.TotalObservations += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, obs := range ds.Observations {
		batch = append(batch, &models.IndexedObservation{
			Observation: *obs,
			Year:        models.CalendarYear(obs.Age, obs.RecordID, corrections),
		})

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INDEX_COMPLETE] Dataset indexing completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"total_observations": result.TotalObservations,
		"duration_seconds":   result.Duration.Seconds(),
		"stage":              "COMPLETE",
	})

	return result, nil
}
