package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/database"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

var (
	testLogger  = logging.NewStructuredLogger("repository-test", "test", logging.ErrorLevel)
	testMetrics = metrics.NewCollector("repository_test")
)

func openTestRepo(t *testing.T) RecordRepository {
	t.Helper()

	db, err := database.NewSQLiteDB(&database.Config{
		Path:         filepath.Join(t.TempDir(), "index.sqlite"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}, testLogger, testMetrics)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_create_schema.up.sql"))
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), "migrate", string(schema))
	require.NoError(t, err)

	return NewRecordRepository(db, testLogger, testMetrics)
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }

func seedRecords(t *testing.T, repo RecordRepository) {
	t.Helper()
	ctx := context.Background()

	records := []*models.Record{
		{
			RecordID: "DAV01", SiteName: "Davies Reef",
			Latitude: -18.83, Longitude: 147.63,
			Species: "Porites sp.", Proxies: "SrCa;BaCa",
			NominalResolution:  "Monthly",
			MeanSamplesPerYear: floatPtr(12),
			CoverageGroup:      ">100 yr",
			StartYear:          1880, EndYear: 2004,
			SSTCalibration: true,
		},
		{
			RecordID: "HAV02", SiteName: "Havannah Island",
			Latitude: -18.85, Longitude: 146.53,
			Species: "Porites sp.", Proxies: "Lumin",
			NominalResolution:  "Annual",
			MeanSamplesPerYear: floatPtr(1),
			CoverageGroup:      "30-100 yr",
			StartYear:          1920, EndYear: 1990,
			HydroCalibration: true, Anomalous: true,
		},
	}
	for _, rec := range records {
		require.NoError(t, repo.CreateRecord(ctx, rec))
	}
}

func seedObservations(t *testing.T, repo RecordRepository) {
	t.Helper()

	obs := []*models.IndexedObservation{
		{Observation: models.Observation{RecordID: "DAV01", Proxy: "SrCa", Age: 1950.2, Value: 8.92}, Year: 1950},
		{Observation: models.Observation{RecordID: "DAV01", Proxy: "SrCa", Age: 1950.8, Value: 8.88}, Year: 1950},
		{Observation: models.Observation{RecordID: "DAV01", Proxy: "BaCa", Age: 1951.1, Value: 4.31}, Year: 1951},
		{Observation: models.Observation{RecordID: "HAV02", Proxy: "Lumin", Age: 1950.5, Value: 0.44}, Year: 1950},
		{Observation: models.Observation{RecordID: "HAV02", Proxy: "Lumin", Age: 1960.5, Value: 0.47}, Year: 1960},
	}
	require.NoError(t, repo.CreateObservationsBatch(context.Background(), obs))
}

func TestCreateAndGetRecord(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)
	ctx := context.Background()

	rec, err := repo.GetRecord(ctx, "DAV01")
	require.NoError(t, err)
	assert.Equal(t, "Davies Reef", rec.SiteName)
	assert.Equal(t, "SrCa;BaCa", rec.Proxies)
	assert.Equal(t, 1880, rec.StartYear)
	assert.True(t, rec.SSTCalibration)
	require.NotNil(t, rec.MeanSamplesPerYear)
	assert.Equal(t, 12.0, *rec.MeanSamplesPerYear)
	assert.Nil(t, rec.MinSamplesPerYear)
}

func TestGetRecord_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetRecord(context.Background(), "NOPE01")
	require.Error(t, err)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateRecord_DuplicateIsNoop(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.CreateRecord(ctx, &models.Record{
		RecordID: "DAV01", SiteName: "Somewhere Else",
		NominalResolution: "Daily", CoverageGroup: "<30 yr",
	}))

	rec, err := repo.GetRecord(ctx, "DAV01")
	require.NoError(t, err)
	assert.Equal(t, "Davies Reef", rec.SiteName)
}

func TestListRecords_Filters(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   RecordQuery
		wantIDs []string
	}{
		{"no filter", RecordQuery{}, []string{"DAV01", "HAV02"}},
		{"proxy substring", RecordQuery{ProxyContains: strPtr("BaCa")}, []string{"DAV01"}},
		{"one resolution", RecordQuery{Resolutions: []string{"Annual"}}, []string{"HAV02"}},
		{"several resolutions", RecordQuery{Resolutions: []string{"Annual", "Monthly"}}, []string{"DAV01", "HAV02"}},
		{"coverage group", RecordQuery{CoverageGroups: []string{">100 yr"}}, []string{"DAV01"}},
		{"year overlap", RecordQuery{MinYear: intPtr(1995), MaxYear: intPtr(2010)}, []string{"DAV01"}},
		{"bounding box hit", RecordQuery{MinLat: floatPtr(-19), MaxLat: floatPtr(-18.84), MinLon: floatPtr(146), MaxLon: floatPtr(147)}, []string{"HAV02"}},
		{"bounding box miss", RecordQuery{MinLon: floatPtr(150)}, nil},
		{"sst calibrated", RecordQuery{SSTCalibration: boolPtr(true)}, []string{"DAV01"}},
		{"hydro calibrated", RecordQuery{HydroCalibration: boolPtr(true)}, []string{"HAV02"}},
		{"exclude anomalous", RecordQuery{ExcludeAnomalous: true}, []string{"DAV01"}},
		{"limit", RecordQuery{Limit: 1}, []string{"DAV01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := repo.ListRecords(ctx, tt.query)
			require.NoError(t, err)

			var ids []string
			for _, rec := range records {
				ids = append(ids, rec.RecordID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetObservations(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)
	seedObservations(t, repo)
	ctx := context.Background()

	obs, total, err := repo.GetObservations(ctx, ObservationQuery{
		RecordID: strPtr("DAV01"),
		Proxy:    strPtr("SrCa"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, obs, 2)
	assert.Equal(t, 1950.2, obs[0].Age)
	assert.Equal(t, 1950.8, obs[1].Age)

	// Age bounds are exclusive on both ends
	obs, total, err = repo.GetObservations(ctx, ObservationQuery{
		MinAge: floatPtr(1950.2),
		MaxAge: floatPtr(1960.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, obs, 3)

	// Pagination keeps the unpaged total
	obs, total, err = repo.GetObservations(ctx, ObservationQuery{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, obs, 1)
	assert.Equal(t, 1960.5, obs[0].Age)
}

func TestCreateObservationsBatch_UnknownRecord(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)

	err := repo.CreateObservationsBatch(context.Background(), []*models.IndexedObservation{
		{Observation: models.Observation{RecordID: "NOPE01", Proxy: "SrCa", Age: 1950.2, Value: 8.92}, Year: 1950},
	})
	require.Error(t, err)
}

func TestCountByYearCategory(t *testing.T) {
	repo := openTestRepo(t)
	seedRecords(t, repo)
	seedObservations(t, repo)
	ctx := context.Background()

	counts, err := repo.CountByYearCategory(ctx, "resolution")
	require.NoError(t, err)

	// Two DAV01 SrCa ages in 1950 count as one record
	want := map[string]int{
		"Monthly/1950": 1,
		"Monthly/1951": 1,
		"Annual/1950":  1,
		"Annual/1960":  1,
	}
	require.Len(t, counts, len(want))
	for _, c := range counts {
		key := fmt.Sprintf("%s/%d", c.Category, c.Year)
		assert.Equal(t, want[key], c.Count, key)
		assert.Equal(t, models.ResolutionRank(c.Category), c.Rank)
	}
}

func TestCountByYearCategory_UnknownCategorization(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.CountByYearCategory(context.Background(), "species")
	require.Error(t, err)
}
