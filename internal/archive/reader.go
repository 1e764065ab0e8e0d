// Package archive reads and writes the self-describing form of the coral
// database: a directory of NetCDF documents, one per record, each carrying
// the record's proxy series as variables over an age dimension and its
// metadata as global attributes.
package archive

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
)

// Document is one record's sub-document of the archive.
type Document struct {
	Record       *models.Record
	Observations []*models.Observation
}

// ReadArchive reads every record document under dir and assembles a
// Dataset equivalent to one loaded from the CSV form.
func ReadArchive(dir string) (*dataset.Dataset, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.nc"))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no record documents found in %s", dir)
	}
	sort.Strings(files)

	ds := &dataset.Dataset{
		ByID: make(map[string]*models.Record, len(files)),
	}

	for _, path := range files {
		doc, err := ReadDocument(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		if _, ok := ds.ByID[doc.Record.RecordID]; ok {
			return nil, fmt.Errorf("duplicate record %s in archive", doc.Record.RecordID)
		}
		ds.Records = append(ds.Records, doc.Record)
		ds.ByID[doc.Record.RecordID] = doc.Record
		ds.Observations = append(ds.Observations, doc.Observations...)
	}

	return ds, nil
}

// ReadDocument reads one record document. The document's global attributes
// hold the metadata row; each non-age variable is one proxy series aligned
// with the age variable, with NaN cells marking gaps.
func ReadDocument(path string) (*Document, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	rec, err := recordFromAttrs(nc.Attributes())
	if err != nil {
		return nil, err
	}

	ages, err := seriesValues(nc, "age")
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.RecordID, err)
	}

	doc := &Document{Record: rec}
	for _, name := range nc.ListVariables() {
		if name == "age" {
			continue
		}
		values, err := seriesValues(nc, name)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.RecordID, err)
		}
		if len(values) != len(ages) {
			return nil, fmt.Errorf("record %s: series %s has %d values for %d ages",
				rec.RecordID, name, len(values), len(ages))
		}
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			doc.Observations = append(doc.Observations, &models.Observation{
				RecordID: rec.RecordID,
				Proxy:    name,
				Age:      ages[i],
				Value:    v,
			})
		}
	}

	return doc, nil
}

func seriesValues(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	values, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("series %s is not a float64 vector", name)
	}
	return values, nil
}

func recordFromAttrs(attrs api.AttributeMap) (*models.Record, error) {
	recordID := attrString(attrs, "record_id")
	if recordID == "" {
		return nil, fmt.Errorf("document has no record_id attribute")
	}

	lat, ok := attrFloat(attrs, "latitude")
	if !ok {
		return nil, fmt.Errorf("record %s: missing latitude attribute", recordID)
	}
	lon, ok := attrFloat(attrs, "longitude")
	if !ok {
		return nil, fmt.Errorf("record %s: missing longitude attribute", recordID)
	}
	startYear, ok := attrInt(attrs, "start_year")
	if !ok {
		return nil, fmt.Errorf("record %s: missing start_year attribute", recordID)
	}
	endYear, ok := attrInt(attrs, "end_year")
	if !ok {
		return nil, fmt.Errorf("record %s: missing end_year attribute", recordID)
	}

	rec := &models.Record{
		RecordID:          recordID,
		SiteName:          attrString(attrs, "site_name"),
		Latitude:          lat,
		Longitude:         lon,
		Species:           attrString(attrs, "species"),
		Proxies:           attrString(attrs, "proxies"),
		NominalResolution: attrString(attrs, "nominal_resolution"),
		CoverageGroup:     attrString(attrs, "coverage_group"),
		StartYear:         startYear,
		EndYear:           endYear,
		SSTCalibration:    attrString(attrs, "sst_calibration") == "true",
		HydroCalibration:  attrString(attrs, "hydro_calibration") == "true",
		Anomalous:         attrString(attrs, "anomalous") == "true",
	}

	if v, ok := attrFloat(attrs, "min_samples_per_year"); ok {
		rec.MinSamplesPerYear = &v
	}
	if v, ok := attrFloat(attrs, "max_samples_per_year"); ok {
		rec.MaxSamplesPerYear = &v
	}
	if v, ok := attrFloat(attrs, "mean_samples_per_year"); ok {
		rec.MeanSamplesPerYear = &v
	}
	if v, ok := attrFloat(attrs, "median_samples_per_year"); ok {
		rec.MedianSamplesPerYear = &v
	}

	return rec, nil
}

func attrString(attrs api.AttributeMap, key string) string {
	v, has := attrs.Get(key)
	if !has {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimRight(t, "\x00")
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	v, has := attrs.Get(key)
	if !has {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case []float64:
		if len(t) > 0 {
			return t[0], true
		}
	case []float32:
		if len(t) > 0 {
			return float64(t[0]), true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func attrInt(attrs api.AttributeMap, key string) (int, bool) {
	switch v, has := attrs.Get(key); t := v.(type) {
	case int32:
		return int(t), has
	case int64:
		return int(t), has
	case []int32:
		if has && len(t) > 0 {
			return int(t[0]), true
		}
	case float64:
		return int(t), has
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); has && err == nil {
			return n, true
		}
	}
	return 0, false
}
