package models

import (
	"strconv"
	"strings"
)

// Record represents one coral-skeletal proxy time series and its metadata.
// NULL resolution descriptors represented as pointers for empty-cell handling
type Record struct {
	RecordID             string   `json:"record_id" db:"record_id"`
	SiteName             string   `json:"site_name" db:"site_name"`
	Latitude             float64  `json:"latitude" db:"latitude"`
	Longitude            float64  `json:"longitude" db:"longitude"`
	Species              string   `json:"species" db:"species"`
	Proxies              string   `json:"proxies" db:"proxies"`
	NominalResolution    string   `json:"nominal_resolution" db:"nominal_resolution"`
	MinSamplesPerYear    *float64 `json:"min_samples_per_year,omitempty" db:"min_samples_per_year"`
	MaxSamplesPerYear    *float64 `json:"max_samples_per_year,omitempty" db:"max_samples_per_year"`
	MeanSamplesPerYear   *float64 `json:"mean_samples_per_year,omitempty" db:"mean_samples_per_year"`
	MedianSamplesPerYear *float64 `json:"median_samples_per_year,omitempty" db:"median_samples_per_year"`
	CoverageGroup        string   `json:"coverage_group" db:"coverage_group"`
	StartYear            int      `json:"start_year" db:"start_year"`
	EndYear              int      `json:"end_year" db:"end_year"`
	SSTCalibration       bool     `json:"sst_calibration" db:"sst_calibration"`
	HydroCalibration     bool     `json:"hydro_calibration" db:"hydro_calibration"`
	Anomalous            bool     `json:"anomalous" db:"anomalous"`
}

// ProxyList splits the semicolon-separated proxy descriptor.
func (r *Record) ProxyList() []string {
	if r.Proxies == "" {
		return nil
	}
	parts := strings.Split(r.Proxies, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasProxy reports whether the proxy descriptor contains the named proxy.
func (r *Record) HasProxy(name string) bool {
	return strings.Contains(r.Proxies, name)
}

// SpanYears returns the record's total temporal span in years.
func (r *Record) SpanYears() int {
	return r.EndYear - r.StartYear + 1
}

// RawMetadataRow represents a single row from the metadata CSV table
// Used during dataset loading
type RawMetadataRow struct {
	RecordID             string
	SiteName             string
	Latitude             string
	Longitude            string
	Species              string
	Proxies              string
	NominalResolution    string
	MinSamplesPerYear    string
	MaxSamplesPerYear    string
	MeanSamplesPerYear   string
	MedianSamplesPerYear string
	CoverageGroup        string
	StartYear            string
	EndYear              string
	SSTCalibration       string
	HydroCalibration     string
	Anomalous            string
}

// ToRecord converts RawMetadataRow to Record
// Handles empty cells as NULL and validates numeric fields
func (r *RawMetadataRow) ToRecord() (*Record, error) {
	if strings.TrimSpace(r.RecordID) == "" {
		return nil, &ValidationError{
			Field:   "record_id",
			Value:   r.RecordID,
			Message: "record identifier must not be empty",
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
	if err != nil {
		return nil, &ValidationError{
			Field:   "latitude",
			Value:   r.Latitude,
			Message: "invalid latitude, expected decimal degrees",
		}
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)
	if err != nil {
		return nil, &ValidationError{
			Field:   "longitude",
			Value:   r.Longitude,
			Message: "invalid longitude, expected decimal degrees",
		}
	}

	startYear, err := strconv.Atoi(strings.TrimSpace(r.StartYear))
	if err != nil {
		return nil, &ValidationError{
			Field:   "start_year",
			Value:   r.StartYear,
			Message: "invalid start year, expected integer",
		}
	}

	endYear, err := strconv.Atoi(strings.TrimSpace(r.EndYear))
	if err != nil {
		return nil, &ValidationError{
			Field:   "end_year",
			Value:   r.EndYear,
			Message: "invalid end year, expected integer",
		}
	}

	rec := &Record{
		RecordID:          strings.TrimSpace(r.RecordID),
		SiteName:          strings.TrimSpace(r.SiteName),
		Latitude:          lat,
		Longitude:         lon,
		Species:           strings.TrimSpace(r.Species),
		Proxies:           strings.TrimSpace(r.Proxies),
		NominalResolution: strings.TrimSpace(r.NominalResolution),
		CoverageGroup:     strings.TrimSpace(r.CoverageGroup),
		StartYear:         startYear,
		EndYear:           endYear,
		SSTCalibration:    parseFlag(r.SSTCalibration),
		HydroCalibration:  parseFlag(r.HydroCalibration),
		Anomalous:         parseFlag(r.Anomalous),
	}

	// Empty resolution descriptor cells mean the value was not reported
	if v, ok := parseOptionalFloat(r.MinSamplesPerYear); ok {
		rec.MinSamplesPerYear = &v
	}
	if v, ok := parseOptionalFloat(r.MaxSamplesPerYear); ok {
		rec.MaxSamplesPerYear = &v
	}
	if v, ok := parseOptionalFloat(r.MeanSamplesPerYear); ok {
		rec.MeanSamplesPerYear = &v
	}
	if v, ok := parseOptionalFloat(r.MedianSamplesPerYear); ok {
		rec.MedianSamplesPerYear = &v
	}

	return rec, nil
}

func parseOptionalFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseFlag accepts the spellings the source tables use for booleans.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
