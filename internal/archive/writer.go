package archive

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
)

// WriteArchive writes the dataset as one record document per record under
// dir. Records without observations get a document with empty series.
func WriteArchive(ds *dataset.Dataset, dir string) error {
	byRecord := make(map[string][]*models.Observation)
	for _, obs := range ds.Observations {
		byRecord[obs.RecordID] = append(byRecord[obs.RecordID], obs)
	}

	for _, rec := range ds.Records {
		doc := &Document{Record: rec, Observations: byRecord[rec.RecordID]}
		path := filepath.Join(dir, rec.RecordID+".nc")
		if err := WriteDocument(doc, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", rec.RecordID, err)
		}
	}

	return nil
}

// WriteDocument writes one record document: metadata as global attributes,
// the union of observation ages as the age variable, and one aligned series
// variable per proxy with NaN marking gaps.
func WriteDocument(doc *Document, path string) error {
	ages, series := alignSeries(doc.Observations)

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}

	attrs, err := metadataAttrs(doc.Record)
	if err != nil {
		cw.Close()
		return err
	}
	if err := cw.AddGlobalAttrs(attrs); err != nil {
		cw.Close()
		return err
	}

	if err := cw.AddVar("age", api.Variable{
		Values:     ages,
		Dimensions: []string{"age"},
	}); err != nil {
		cw.Close()
		return err
	}

	proxies := make([]string, 0, len(series))
	for proxy := range series {
		proxies = append(proxies, proxy)
	}
	sort.Strings(proxies)

	for _, proxy := range proxies {
		if err := cw.AddVar(proxy, api.Variable{
			Values:     series[proxy],
			Dimensions: []string{"age"},
		}); err != nil {
			cw.Close()
			return err
		}
	}

	return cw.Close()
}

// alignSeries melts the long observation rows back onto a common age axis,
// one NaN-padded vector per proxy.
func alignSeries(observations []*models.Observation) ([]float64, map[string][]float64) {
	ageSet := make(map[float64]bool)
	for _, obs := range observations {
		ageSet[obs.Age] = true
	}
	ages := make([]float64, 0, len(ageSet))
	for age := range ageSet {
		ages = append(ages, age)
	}
	sort.Float64s(ages)

	ageIndex := make(map[float64]int, len(ages))
	for i, age := range ages {
		ageIndex[age] = i
	}

	series := make(map[string][]float64)
	for _, obs := range observations {
		vec, ok := series[obs.Proxy]
		if !ok {
			vec = make([]float64, len(ages))
			for i := range vec {
				vec[i] = math.NaN()
			}
			series[obs.Proxy] = vec
		}
		vec[ageIndex[obs.Age]] = obs.Value
	}

	return ages, series
}

func metadataAttrs(rec *models.Record) (api.AttributeMap, error) {
	keys := []string{
		"record_id", "site_name", "latitude", "longitude", "species",
		"proxies", "nominal_resolution", "coverage_group",
		"start_year", "end_year",
		"sst_calibration", "hydro_calibration", "anomalous",
	}
	values := map[string]interface{}{
		"record_id":          rec.RecordID,
		"site_name":          rec.SiteName,
		"latitude":           rec.Latitude,
		"longitude":          rec.Longitude,
		"species":            rec.Species,
		"proxies":            rec.Proxies,
		"nominal_resolution": rec.NominalResolution,
		"coverage_group":     rec.CoverageGroup,
		"start_year":         int32(rec.StartYear),
		"end_year":           int32(rec.EndYear),
		"sst_calibration":    flagAttr(rec.SSTCalibration),
		"hydro_calibration":  flagAttr(rec.HydroCalibration),
		"anomalous":          flagAttr(rec.Anomalous),
	}

	if rec.MinSamplesPerYear != nil {
		keys = append(keys, "min_samples_per_year")
		values["min_samples_per_year"] = *rec.MinSamplesPerYear
	}
	if rec.MaxSamplesPerYear != nil {
		keys = append(keys, "max_samples_per_year")
		values["max_samples_per_year"] = *rec.MaxSamplesPerYear
	}
	if rec.MeanSamplesPerYear != nil {
		keys = append(keys, "mean_samples_per_year")
		values["mean_samples_per_year"] = *rec.MeanSamplesPerYear
	}
	if rec.MedianSamplesPerYear != nil {
		keys = append(keys, "median_samples_per_year")
		values["median_samples_per_year"] = *rec.MedianSamplesPerYear
	}

	return util.NewOrderedMap(keys, values)
}

func flagAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
