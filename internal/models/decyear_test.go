package models

import (
	"testing"
)

// TestCalendarDate tests the decimal-year conversion, including the legacy
// BCE adjustment and the per-record exemptions from it.
func TestCalendarDate(t *testing.T) {
	tests := []struct {
		name      string
		age       float64
		recordID  string
		wantYear  int
		wantMonth int
	}{
		{
			name:      "mid-year CE age",
			age:       1950.2,
			recordID:  "DAV01",
			wantYear:  1950,
			wantMonth: 3,
		},
		{
			name:      "late-year CE age same calendar year",
			age:       1950.8,
			recordID:  "DAV01",
			wantYear:  1950,
			wantMonth: 10,
		},
		{
			name:      "exact CE integer is January",
			age:       2004,
			recordID:  "DAV01",
			wantYear:  2004,
			wantMonth: 1,
		},
		{
			name:      "year zero exists",
			age:       0.5,
			recordID:  "DAV01",
			wantYear:  0,
			wantMonth: 7,
		},
		{
			name:     "fractional BCE age gets the legacy extra year",
			age:      -1204.25,
			recordID: "DAV01",
			// floor gives -1205; the legacy adjustment subtracts one more
			wantYear:  -1206,
			wantMonth: 10,
		},
		{
			name:      "exact BCE integer is not adjusted",
			age:       -1204,
			recordID:  "DAV01",
			wantYear:  -1204,
			wantMonth: 1,
		},
		{
			name:      "exempt record prefix skips the adjustment",
			age:       -1204.25,
			recordID:  "ARL03",
			wantYear:  -1205,
			wantMonth: 10,
		},
		{
			name:      "second exempt prefix",
			age:       -350.5,
			recordID:  "MYR11",
			wantYear:  -351,
			wantMonth: 7,
		},
		{
			name:      "fraction close to one stays in December",
			age:       1887.999,
			recordID:  "DAV01",
			wantYear:  1887,
			wantMonth: 12,
		},
		{
			name:      "out-of-range age passes through arithmetically",
			age:       -9000.5,
			recordID:  "DAV01",
			wantYear:  -9002,
			wantMonth: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month := CalendarDate(tt.age, tt.recordID, DefaultAgeCorrections)

			if year != tt.wantYear {
				t.Errorf("CalendarDate(%v) year = %v, want %v", tt.age, year, tt.wantYear)
			}
			if month != tt.wantMonth {
				t.Errorf("CalendarDate(%v) month = %v, want %v", tt.age, month, tt.wantMonth)
			}
		})
	}
}

func TestCalendarDate_EmptyCorrectionTable(t *testing.T) {
	// With no exemptions the legacy adjustment applies to every record.
	year, _ := CalendarDate(-1204.25, "ARL03", AgeCorrections{})
	if year != -1206 {
		t.Errorf("year = %v, want -1206", year)
	}
}

func TestCalendarYear(t *testing.T) {
	if got := CalendarYear(1950.8, "DAV01", DefaultAgeCorrections); got != 1950 {
		t.Errorf("CalendarYear(1950.8) = %v, want 1950", got)
	}
}
