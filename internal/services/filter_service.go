package services

import (
	"context"

	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// RecordFilter selects records by scientific criteria. Zero-valued fields
// do not constrain. Year bounds select records whose span overlaps the
// range; the bounding box is inclusive.
type RecordFilter struct {
	ProxyContains    string
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
}

// Matches reports whether the record satisfies every set criterion.
func (f *RecordFilter) Matches(rec *models.Record) bool {
	if f.ProxyContains != "" && !rec.HasProxy(f.ProxyContains) {
		return false
	}
	if len(f.Resolutions) > 0 && !containsString(f.Resolutions, rec.NominalResolution) {
		return false
	}
	if len(f.CoverageGroups) > 0 && !containsString(f.CoverageGroups, rec.CoverageGroup) {
		return false
	}
	if f.MinYear != nil && rec.EndYear < *f.MinYear {
		return false
	}
	if f.MaxYear != nil && rec.StartYear > *f.MaxYear {
		return false
	}
	if f.MinLat != nil && rec.Latitude < *f.MinLat {
		return false
	}
	if f.MaxLat != nil && rec.Latitude > *f.MaxLat {
		return false
	}
	if f.MinLon != nil && rec.Longitude < *f.MinLon {
		return false
	}
	if f.MaxLon != nil && rec.Longitude > *f.MaxLon {
		return false
	}
	if f.SSTCalibration != nil && rec.SSTCalibration != *f.SSTCalibration {
		return false
	}
	if f.HydroCalibration != nil && rec.HydroCalibration != *f.HydroCalibration {
		return false
	}
	if f.ExcludeAnomalous && rec.Anomalous {
		return false
	}
	return true
}

// ObservationFilter constrains joined rows by series content.
type ObservationFilter struct {
	Proxy  string
	MinAge *float64
	MaxAge *float64
}

func (f *ObservationFilter) matches(obs *models.Observation) bool {
	if f.Proxy != "" && obs.Proxy != f.Proxy {
		return false
	}
	if f.MinAge != nil && obs.Age <= *f.MinAge {
		return false
	}
	if f.MaxAge != nil && obs.Age >= *f.MaxAge {
		return false
	}
	return true
}

// JoinedRow pairs one observation with its record's metadata row.
type JoinedRow struct {
	Record      *models.Record
	Observation *models.Observation
}

// FilterService applies metadata filters and joins observations with
// metadata. All methods derive new slices; inputs are never mutated.
type FilterService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFilterService creates a new filter service
func NewFilterService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FilterService {
	return &FilterService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FilterRecords returns the records matching the filter, in input order.
func (s *FilterService) FilterRecords(ctx context.Context, records []*models.Record, filter RecordFilter) []*models.Record {
	var out []*models.Record
	for _, rec := range records {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}

	s.logger.Debug(ctx, "[FILTER_RECORDS] Metadata filter applied", logging.Fields{
		"input_records":  len(records),
		"output_records": len(out),
	})

	return out
}

// JoinObservations inner-joins observations with the given metadata rows by
// record identifier. Observations of records outside the set are dropped,
// which makes the join commute with metadata-column filtering.
func JoinObservations(records []*models.Record, observations []*models.Observation) []JoinedRow {
	byID := make(map[string]*models.Record, len(records))
	for _, rec := range records {
		byID[rec.RecordID] = rec
	}

	var rows []JoinedRow
	for _, obs := range observations {
		rec, ok := byID[obs.RecordID]
		if !ok {
			continue
		}
		rows = append(rows, JoinedRow{Record: rec, Observation: obs})
	}

	return rows
}

// FilterJoined constrains joined rows by metadata and series criteria.
func FilterJoined(rows []JoinedRow, rf RecordFilter, of ObservationFilter) []JoinedRow {
	var out []JoinedRow
	for _, row := range rows {
		if !rf.Matches(row.Record) {
			continue
		}
		if !of.matches(row.Observation) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
