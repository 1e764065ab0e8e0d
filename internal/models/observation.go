package models

import (
	"strconv"
	"strings"
)

// Observation represents a single (age, value) pair of one record's proxy series
type Observation struct {
	RecordID string  `json:"record_id" db:"record_id"`
	Proxy    string  `json:"proxy" db:"proxy"`
	Age      float64 `json:"age" db:"age"`
	Value    float64 `json:"value" db:"value"`
}

// IndexedObservation is an Observation with its calendar year precomputed
// at index time, so SQL aggregation does not re-derive dates.
type IndexedObservation struct {
	Observation
	Year int `db:"year"`
}

// RecordYear is one record's reduced presence in a single calendar year,
// carrying the record's category labels from its metadata row.
type RecordYear struct {
	RecordID      string `db:"record_id"`
	Year          int    `db:"year"`
	CoverageGroup string `db:"coverage_group"`
	Resolution    string `db:"resolution"`
}

// YearCategoryCount is one cell of the dense rendering grid: the number of
// records observed in a category during a year. Rank mirrors the category's
// position in its label set so stacked charts draw bands in a fixed order.
type YearCategoryCount struct {
	Year     int    `db:"year"`
	Category string `db:"category"`
	Rank     int    `db:"rank"`
	Count    int    `db:"count"`
}

// RawObservationRow represents one line of a per-record observation CSV,
// after the header has bound value columns to proxy names.
type RawObservationRow struct {
	Age    string
	Proxy  string
	Value  string
}

// ToObservation converts RawObservationRow to Observation
func (r *RawObservationRow) ToObservation(recordID string) (*Observation, error) {
	age, err := strconv.ParseFloat(strings.TrimSpace(r.Age), 64)
	if err != nil {
		return nil, &ValidationError{
			Field:   "age",
			Value:   r.Age,
			Message: "invalid age, expected decimal year",
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil {
		return nil, &ValidationError{
			Field:   "value",
			Value:   r.Value,
			Message: "invalid proxy value, expected decimal number",
		}
	}

	return &Observation{
		RecordID: recordID,
		Proxy:    strings.TrimSpace(r.Proxy),
		Age:      age,
		Value:    value,
	}, nil
}
