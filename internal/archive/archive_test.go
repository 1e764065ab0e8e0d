package archive

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
)

func sampleDataset() *dataset.Dataset {
	mean := 12.0
	records := []*models.Record{
		{
			RecordID:           "DAV01",
			SiteName:           "Davies Reef",
			Latitude:           -18.83,
			Longitude:          147.63,
			Species:            "Porites lutea",
			Proxies:            "SrCa;BaCa",
			NominalResolution:  "Monthly",
			MeanSamplesPerYear: &mean,
			CoverageGroup:      ">100 yr",
			StartYear:          1880,
			EndYear:            2004,
			SSTCalibration:     true,
		},
		{
			RecordID:          "HAV02",
			SiteName:          "Havannah Island",
			Latitude:          -18.85,
			Longitude:         146.53,
			Species:           "Porites",
			Proxies:           "Lumin",
			NominalResolution: "Annual",
			CoverageGroup:     "30-100 yr",
			StartYear:         1920,
			EndYear:           1985,
			Anomalous:         true,
		},
	}

	observations := []*models.Observation{
		{RecordID: "DAV01", Proxy: "SrCa", Age: 1987.042, Value: 8.921},
		{RecordID: "DAV01", Proxy: "SrCa", Age: 1987.125, Value: 8.930},
		// BaCa has a gap at 1987.125
		{RecordID: "DAV01", Proxy: "BaCa", Age: 1987.042, Value: 4.11},
		{RecordID: "HAV02", Proxy: "Lumin", Age: 1950.5, Value: 0.44},
	}

	ds := &dataset.Dataset{
		Records:      records,
		Observations: observations,
		ByID:         make(map[string]*models.Record),
	}
	for _, rec := range records {
		ds.ByID[rec.RecordID] = rec
	}
	return ds
}

func TestDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset()

	doc := &Document{Record: ds.Records[0], Observations: ds.Observations[:3]}
	path := filepath.Join(dir, "DAV01.nc")
	require.NoError(t, WriteDocument(doc, path))

	got, err := ReadDocument(path)
	require.NoError(t, err)

	rec := got.Record
	assert.Equal(t, "DAV01", rec.RecordID)
	assert.Equal(t, "Davies Reef", rec.SiteName)
	assert.InDelta(t, -18.83, rec.Latitude, 1e-9)
	assert.InDelta(t, 147.63, rec.Longitude, 1e-9)
	assert.Equal(t, "SrCa;BaCa", rec.Proxies)
	assert.Equal(t, "Monthly", rec.NominalResolution)
	assert.Equal(t, ">100 yr", rec.CoverageGroup)
	assert.Equal(t, 1880, rec.StartYear)
	assert.Equal(t, 2004, rec.EndYear)
	assert.True(t, rec.SSTCalibration)
	assert.False(t, rec.Anomalous)
	require.NotNil(t, rec.MeanSamplesPerYear)
	assert.InDelta(t, 12.0, *rec.MeanSamplesPerYear, 1e-9)

	// The BaCa gap at 1987.125 must not come back as an observation.
	assert.Len(t, got.Observations, 3)
	byProxy := make(map[string]int)
	for _, obs := range got.Observations {
		byProxy[obs.Proxy]++
		assert.False(t, math.IsNaN(obs.Value))
	}
	assert.Equal(t, 2, byProxy["SrCa"])
	assert.Equal(t, 1, byProxy["BaCa"])
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset()

	require.NoError(t, WriteArchive(ds, dir))

	got, err := ReadArchive(dir)
	require.NoError(t, err)

	assert.Len(t, got.Records, 2)
	assert.Len(t, got.Observations, 4)
	assert.Contains(t, got.ByID, "DAV01")
	assert.Contains(t, got.ByID, "HAV02")
	assert.True(t, got.ByID["HAV02"].Anomalous)
}

func TestReadArchive_EmptyDirectory(t *testing.T) {
	_, err := ReadArchive(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no record documents")
}
