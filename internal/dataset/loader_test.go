package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

const metadataCSV = `record_id,site_name,latitude,longitude,species,proxies,nominal_resolution,min_samples_per_year,max_samples_per_year,mean_samples_per_year,median_samples_per_year,coverage_group,start_year,end_year,sst_calibration,hydro_calibration,anomalous
DAV01,Davies Reef,-18.83,147.63,Porites lutea,SrCa;BaCa,Monthly,10,14,12,12,>100 yr,1880,2004,true,false,false
HAV02,Havannah Island,-18.85,146.53,Porites,Lumin,Annual,,,1,,30-100 yr,1920,1985,false,true,false
BADROW,Bad Row,south,146.0,Porites,SrCa,Annual,,,,,<30 yr,1990,2004,false,false,false
`

const dav01CSV = `age,SrCa,BaCa
1987.042,8.921,4.11
1987.125,8.930,
1987.208,,4.02
`

const hav02CSV = `age,Lumin
1950.5,0.44
1951.5,0.47
notanage,0.50
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "metadata.csv", metadataCSV)

	records, skipped, err := ReadMetadata(path)
	require.NoError(t, err)

	assert.Len(t, records, 2, "malformed rows are skipped, not loaded")
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "DAV01", records[0].RecordID)
	assert.Equal(t, ">100 yr", records[0].CoverageGroup)
	assert.True(t, records[0].SSTCalibration)
	require.NotNil(t, records[1].MeanSamplesPerYear)
	assert.Equal(t, 1.0, *records[1].MeanSamplesPerYear)
	assert.Nil(t, records[1].MinSamplesPerYear)
}

func TestReadMetadata_RaggedRows(t *testing.T) {
	dir := t.TempDir()
	// MYR04 is truncated before end_year and fails validation; HER05 only
	// drops the trailing anomalous flag, which defaults to false.
	ragged := metadataCSV +
		"MYR04,Myrmidon Reef,-18.27,147.38,Porites,SrCa,Seasonal,,,4,,<30 yr,-1210\n" +
		"HER05,Heron Island,-23.44,151.91,Porites,SrCa,Monthly,,,12,,>100 yr,1850,2001,true,false\n"
	path := writeFixture(t, dir, "metadata.csv", ragged)

	records, skipped, err := ReadMetadata(path)
	require.NoError(t, err, "ragged rows must not abort the load")

	assert.Len(t, records, 3)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "HER05", records[2].RecordID)
	assert.True(t, records[2].SSTCalibration)
	assert.False(t, records[2].Anomalous)
}

func TestReadObservations_RaggedRows(t *testing.T) {
	dir := t.TempDir()
	short := dav01CSV + "1987.292,8.914\n"
	path := writeFixture(t, dir, "DAV01.csv", short)

	obs, skipped, err := ReadObservations(path, "DAV01")
	require.NoError(t, err, "a short row only drops its missing trailing cells")
	assert.Len(t, obs, 5)
	assert.Equal(t, 0, skipped)
	last := obs[len(obs)-1]
	assert.Equal(t, "SrCa", last.Proxy)
	assert.Equal(t, 8.914, last.Value)
}

func TestReadMetadata_DuplicateRecord(t *testing.T) {
	dir := t.TempDir()
	dup := metadataCSV + "DAV01,Davies Reef,-18.83,147.63,Porites,SrCa,Monthly,,,,,>100 yr,1880,2004,false,false,false\n"
	path := writeFixture(t, dir, "metadata.csv", dup)

	_, _, err := ReadMetadata(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metadata row")
}

func TestReadMetadata_MissingFile(t *testing.T) {
	_, _, err := ReadMetadata(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errUnwrapAll(err)))
}

func TestReadObservations_MeltsWideColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "DAV01.csv", dav01CSV)

	obs, skipped, err := ReadObservations(path, "DAV01")
	require.NoError(t, err)

	// 3 rows, 2 proxy columns, 2 empty cells
	assert.Len(t, obs, 4)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, "SrCa", obs[0].Proxy)
	assert.Equal(t, 1987.042, obs[0].Age)
	assert.Equal(t, "BaCa", obs[1].Proxy)
	for _, o := range obs {
		assert.Equal(t, "DAV01", o.RecordID)
	}
}

func TestReadObservations_SkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "HAV02.csv", hav02CSV)

	obs, skipped, err := ReadObservations(path, "HAV02")
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.Equal(t, 1, skipped)
}

func TestReadObservations_RejectsMissingAgeColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "X.csv", "year,SrCa\n1987,8.9\n")

	_, _, err := ReadObservations(path, "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age column")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	metaPath := writeFixture(t, dir, "metadata.csv", metadataCSV)
	obsDir := filepath.Join(dir, "records")
	require.NoError(t, os.Mkdir(obsDir, 0o755))
	writeFixture(t, obsDir, "DAV01.csv", dav01CSV)
	writeFixture(t, obsDir, "HAV02.csv", hav02CSV)

	logger := logging.NewStructuredLogger("loader-test", "test", logging.ErrorLevel)
	loader := NewLoader(logger, metrics.NewCollector("loader_test"))

	ds, result, err := loader.LoadDirectory(context.Background(), metaPath, obsDir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 6, result.TotalObservations)
	assert.Len(t, ds.Records, 2)
	assert.Len(t, ds.Observations, 6)
	assert.Contains(t, ds.ByID, "DAV01")
	assert.Contains(t, ds.ByID, "HAV02")
}

func TestLoadDirectory_OrphanObservationFile(t *testing.T) {
	dir := t.TempDir()
	metaPath := writeFixture(t, dir, "metadata.csv", metadataCSV)
	obsDir := filepath.Join(dir, "records")
	require.NoError(t, os.Mkdir(obsDir, 0o755))
	writeFixture(t, obsDir, "NOP99.csv", dav01CSV)

	logger := logging.NewStructuredLogger("loader-test", "test", logging.ErrorLevel)
	loader := NewLoader(logger, metrics.NewCollector("loader_test_orphan"))

	_, _, err := loader.LoadDirectory(context.Background(), metaPath, obsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no metadata row")
}

// errUnwrapAll walks the %w chain to its root.
func errUnwrapAll(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
