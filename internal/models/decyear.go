package models

import (
	"math"
	"strings"
)

// Fixed historical bounds of the dataset, used for dense grid construction.
const (
	GridStartYear = -5890
	GridEndYear   = 2017
)

// AgeCorrections lists record-identifier prefixes exempt from the legacy
// BCE year adjustment. These are patches for specific known records in the
// source tables, not a general dating rule; callers with a corrected dataset
// can pass an empty table.
type AgeCorrections struct {
	ExemptPrefixes []string
}

// DefaultAgeCorrections carries the exemptions shipped with the database.
var DefaultAgeCorrections = AgeCorrections{
	ExemptPrefixes: []string{"ARL", "MYR", "FIT"},
}

func (c AgeCorrections) exempt(recordID string) bool {
	for _, p := range c.ExemptPrefixes {
		if strings.HasPrefix(recordID, p) {
			return true
		}
	}
	return false
}

// CalendarDate converts a decimal-year age to a calendar year and month
// under astronomical year numbering (year 0 exists, negative years are BCE).
// The integer part is the year, the fractional part the position within it.
//
// The legacy behavior of the source tables subtracts one further year for
// negative non-integer ages; records listed in the correction table keep the
// plain arithmetic result. Out-of-range ages pass through arithmetically.
func CalendarDate(age float64, recordID string, corrections AgeCorrections) (year, month int) {
	floor := math.Floor(age)
	frac := age - floor

	year = int(floor)
	month = int(frac*12) + 1
	if month > 12 {
		month = 12
	}

	if age < 0 && frac != 0 && !corrections.exempt(recordID) {
		year--
	}

	return year, month
}

// CalendarYear is CalendarDate for callers that only need the year.
func CalendarYear(age float64, recordID string, corrections AgeCorrections) int {
	year, _ := CalendarDate(age, recordID, corrections)
	return year
}
