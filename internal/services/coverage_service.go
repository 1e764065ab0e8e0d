package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// Categorization selects which metadata label the coverage aggregation and
// grid construction run over.
type Categorization int

const (
	ByCoverageGroup Categorization = iota
	ByResolution
)

// Labels returns the categorization's ordered label set, coarsest or
// shortest first. Label position is the stacking rank.
func (c Categorization) Labels() []string {
	if c == ByResolution {
		return models.ResolutionBuckets
	}
	return models.CoverageGroups
}

func (c Categorization) String() string {
	if c == ByResolution {
		return "resolution"
	}
	return "coverage_group"
}

// CoverageService computes temporal-coverage aggregates for area-chart
// rendering: per-record-per-year reduction, dense grid construction, and
// the zero-filling join of the two.
type CoverageService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCoverageService creates a new coverage service
func NewCoverageService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CoverageService {
	return &CoverageService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ReducePerYear collapses each record's observations within one calendar
// year to a single row carrying the record's category labels. The labels
// come from the record's single metadata row, so they are constant across
// the record's observations by construction; an observation without a
// metadata row is an error, not a silently dropped row.
func (s *CoverageService) ReducePerYear(ctx context.Context, ds *dataset.Dataset, corrections models.AgeCorrections) ([]models.RecordYear, error) {
	timer := time.Now()
	defer func() {
		s.metrics.ReductionDuration.Observe(time.Since(timer).Seconds())
	}()

	type key struct {
		recordID string
		year     int
	}
	seen := make(map[key]bool)

	var reduced []models.RecordYear
	for _, obs := range ds.Observations {
		rec, ok := ds.ByID[obs.RecordID]
		if !ok {
			return nil, fmt.Errorf("observation references unknown record %s", obs.RecordID)
		}

		year := models.CalendarYear(obs.Age, obs.RecordID, corrections)
		k := key{recordID: obs.RecordID, year: year}
		if seen[k] {
			continue
		}
		seen[k] = true

		reduced = append(reduced, models.RecordYear{
			RecordID:      obs.RecordID,
			Year:          year,
			CoverageGroup: rec.CoverageGroup,
			Resolution:    rec.NominalResolution,
		})
	}

	sort.Slice(reduced, func(i, j int) bool {
		if reduced[i].RecordID != reduced[j].RecordID {
			return reduced[i].RecordID < reduced[j].RecordID
		}
		return reduced[i].Year < reduced[j].Year
	})

	s.logger.Debug(ctx, "[COVERAGE_REDUCE] Per-record-per-year reduction complete", logging.Fields{
		"observations": len(ds.Observations),
		"record_years": len(reduced),
	})

	return reduced, nil
}

// CountByYearCategory regroups reduced record-years by (year, category) and
// sums: how many records were observed in category C during year Y.
func CountByYearCategory(reduced []models.RecordYear, cat Categorization) []models.YearCategoryCount {
	type key struct {
		year     int
		category string
	}
	counts := make(map[key]int)

	for _, ry := range reduced {
		label := ry.CoverageGroup
		if cat == ByResolution {
			label = ry.Resolution
		}
		counts[key{year: ry.Year, category: label}]++
	}

	out := make([]models.YearCategoryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.YearCategoryCount{
			Year:     k.year,
			Category: k.category,
			Rank:     rankOf(cat, k.category),
			Count:    n,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Rank < out[j].Rank
	})

	return out
}

// BuildCategoryGrid constructs the dense (year, category) skeleton covering
// [startYear, endYear] for every label of the categorization, one row each,
// so area charts render an unbroken fill even where no records exist.
func BuildCategoryGrid(startYear, endYear int, cat Categorization) []models.YearCategoryCount {
	labels := cat.Labels()
	grid := make([]models.YearCategoryCount, 0, (endYear-startYear+1)*len(labels))

	for year := startYear; year <= endYear; year++ {
		for rank, label := range labels {
			grid = append(grid, models.YearCategoryCount{
				Year:     year,
				Category: label,
				Rank:     rank,
			})
		}
	}

	return grid
}

// JoinGridCounts left-joins aggregated counts onto the dense grid. Every
// grid row survives; rows with no matching aggregate keep a zero count.
// The result has exactly as many rows as the grid.
func JoinGridCounts(grid, counts []models.YearCategoryCount) []models.YearCategoryCount {
	type key struct {
		year     int
		category string
	}
	byKey := make(map[key]int, len(counts))
	for _, c := range counts {
		byKey[key{year: c.Year, category: c.Category}] = c.Count
	}

	joined := make([]models.YearCategoryCount, len(grid))
	for i, cell := range grid {
		cell.Count = byKey[key{year: cell.Year, category: cell.Category}]
		joined[i] = cell
	}

	return joined
}

// CoverageTable runs the full pipeline for one categorization: reduce,
// count, build the dense grid over the dataset's fixed historical bounds,
// and join with zero fill.
func (s *CoverageService) CoverageTable(ctx context.Context, ds *dataset.Dataset, cat Categorization, corrections models.AgeCorrections) ([]models.YearCategoryCount, error) {
	reduced, err := s.ReducePerYear(ctx, ds, corrections)
	if err != nil {
		return nil, fmt.Errorf("per-year reduction failed: %w", err)
	}

	counts := CountByYearCategory(reduced, cat)
	grid := BuildCategoryGrid(models.GridStartYear, models.GridEndYear, cat)
	joined := JoinGridCounts(grid, counts)

	s.metrics.GridRowsTotal.Set(float64(len(joined)))

	s.logger.Info(ctx, "[COVERAGE_TABLE] Coverage table built", logging.Fields{
		"categorization": cat.String(),
		"grid_rows":      len(grid),
		"observed_cells": len(counts),
	})

	return joined, nil
}

func rankOf(cat Categorization, label string) int {
	if cat == ByResolution {
		return models.ResolutionRank(label)
	}
	return models.CoverageRank(label)
}
