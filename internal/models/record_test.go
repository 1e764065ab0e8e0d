package models

import (
	"testing"
)

// TestRawMetadataRow_ToRecord tests the metadata conversion logic
func TestRawMetadataRow_ToRecord(t *testing.T) {
	tests := []struct {
		name        string
		row         RawMetadataRow
		wantErr     bool
		checkValues func(*testing.T, *Record)
	}{
		{
			name: "valid row with all fields",
			row: RawMetadataRow{
				RecordID:             "DAV01",
				SiteName:             "Davies Reef",
				Latitude:             "-18.83",
				Longitude:            "147.63",
				Species:              "Porites lutea",
				Proxies:              "SrCa;BaCa",
				NominalResolution:    "Monthly",
				MinSamplesPerYear:    "10",
				MaxSamplesPerYear:    "14",
				MeanSamplesPerYear:   "12",
				MedianSamplesPerYear: "12",
				CoverageGroup:        ">100 yr",
				StartYear:            "1880",
				EndYear:              "2004",
				SSTCalibration:       "true",
				HydroCalibration:     "false",
				Anomalous:            "false",
			},
			wantErr: false,
			checkValues: func(t *testing.T, rec *Record) {
				if rec.RecordID != "DAV01" {
					t.Errorf("RecordID = %v, want %v", rec.RecordID, "DAV01")
				}
				if rec.Latitude != -18.83 {
					t.Errorf("Latitude = %v, want %v", rec.Latitude, -18.83)
				}
				if rec.Longitude != 147.63 {
					t.Errorf("Longitude = %v, want %v", rec.Longitude, 147.63)
				}
				if rec.MeanSamplesPerYear == nil {
					t.Error("MeanSamplesPerYear should not be nil")
				} else if *rec.MeanSamplesPerYear != 12 {
					t.Errorf("MeanSamplesPerYear = %v, want %v", *rec.MeanSamplesPerYear, 12.0)
				}
				if !rec.SSTCalibration {
					t.Error("SSTCalibration should be true")
				}
				if rec.HydroCalibration {
					t.Error("HydroCalibration should be false")
				}
				if rec.SpanYears() != 125 {
					t.Errorf("SpanYears() = %v, want %v", rec.SpanYears(), 125)
				}
			},
		},
		{
			name: "empty resolution descriptor cells become nil",
			row: RawMetadataRow{
				RecordID:          "HAV02",
				SiteName:          "Havannah Island",
				Latitude:          "-18.85",
				Longitude:         "146.53",
				Species:           "Porites",
				Proxies:           "Lumin",
				NominalResolution: "Annual",
				MinSamplesPerYear: "",
				MaxSamplesPerYear: "NA",
				CoverageGroup:     "30-100 yr",
				StartYear:         "1920",
				EndYear:           "1985",
			},
			wantErr: false,
			checkValues: func(t *testing.T, rec *Record) {
				if rec.MinSamplesPerYear != nil {
					t.Error("MinSamplesPerYear should be nil for empty cell")
				}
				if rec.MaxSamplesPerYear != nil {
					t.Error("MaxSamplesPerYear should be nil for NA cell")
				}
				if rec.MeanSamplesPerYear != nil {
					t.Error("MeanSamplesPerYear should be nil for absent cell")
				}
			},
		},
		{
			name: "missing record identifier",
			row: RawMetadataRow{
				RecordID:  "   ",
				Latitude:  "-18.0",
				Longitude: "147.0",
				StartYear: "1900",
				EndYear:   "2000",
			},
			wantErr: true,
		},
		{
			name: "invalid latitude",
			row: RawMetadataRow{
				RecordID:  "DAV01",
				Latitude:  "south",
				Longitude: "147.0",
				StartYear: "1900",
				EndYear:   "2000",
			},
			wantErr: true,
		},
		{
			name: "invalid start year",
			row: RawMetadataRow{
				RecordID:  "DAV01",
				Latitude:  "-18.0",
				Longitude: "147.0",
				StartYear: "1900.5",
				EndYear:   "2000",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.row.ToRecord()

			if (err != nil) != tt.wantErr {
				t.Errorf("ToRecord() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

func TestRecord_ProxyList(t *testing.T) {
	rec := &Record{Proxies: "SrCa; BaCa;Lumin;"}

	got := rec.ProxyList()
	want := []string{"SrCa", "BaCa", "Lumin"}
	if len(got) != len(want) {
		t.Fatalf("ProxyList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ProxyList()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if !rec.HasProxy("BaCa") {
		t.Error("HasProxy(BaCa) should be true")
	}
	if rec.HasProxy("UCa") {
		t.Error("HasProxy(UCa) should be false")
	}

	empty := &Record{}
	if empty.ProxyList() != nil {
		t.Error("ProxyList() of empty descriptor should be nil")
	}
}

func TestCategoryRanks(t *testing.T) {
	if got := CoverageRank("<30 yr"); got != 0 {
		t.Errorf("CoverageRank(<30 yr) = %v, want 0", got)
	}
	if got := CoverageRank(">100 yr"); got != 2 {
		t.Errorf("CoverageRank(>100 yr) = %v, want 2", got)
	}
	if got := ResolutionRank("Multiannual"); got != 0 {
		t.Errorf("ResolutionRank(Multiannual) = %v, want 0", got)
	}
	if got := ResolutionRank("Daily"); got != 8 {
		t.Errorf("ResolutionRank(Daily) = %v, want 8", got)
	}
	if got := ResolutionRank("Hourly"); got != -1 {
		t.Errorf("ResolutionRank(Hourly) = %v, want -1", got)
	}
	if len(ResolutionBuckets) != 9 {
		t.Errorf("len(ResolutionBuckets) = %v, want 9", len(ResolutionBuckets))
	}
	if len(CoverageGroups) != 3 {
		t.Errorf("len(CoverageGroups) = %v, want 3", len(CoverageGroups))
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "latitude",
		Value:   "invalid",
		Message: "invalid latitude, expected decimal degrees",
	}

	if err.Error() != "invalid latitude, expected decimal degrees" {
		t.Errorf("Error() = %v", err.Error())
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}
