package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gbr-coraldb/internal/dataset"
	"gbr-coraldb/internal/models"
	"gbr-coraldb/internal/services"
	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// DemoDataProcessing demonstrates the analysis pipeline without figures or index
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("CORAL RECORD DATABASE - DATA PROCESSING DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	// Initialize logger
	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.InfoLevel)
	metricsCollector := metrics.NewCollector("coraldb_demo")
	ctx := context.Background()

	// Build a small in-memory sample of the database
	rawMetadata := []models.RawMetadataRow{
		{
			RecordID: "DAV01", SiteName: "Davies Reef",
			Latitude: "-18.830", Longitude: "147.630",
			Species: "Porites sp.", Proxies: "SrCa;BaCa",
			NominalResolution: "Monthly", MeanSamplesPerYear: "12",
			CoverageGroup: ">100 yr", StartYear: "1880", EndYear: "2004",
			SSTCalibration: "yes", HydroCalibration: "no", Anomalous: "no",
		},
		{
			RecordID: "HAV02", SiteName: "Havannah Island",
			Latitude: "-18.850", Longitude: "146.530",
			Species: "Porites sp.", Proxies: "Lumin",
			NominalResolution: "Annual", MeanSamplesPerYear: "1",
			CoverageGroup: "30-100 yr", StartYear: "1920", EndYear: "1990",
			SSTCalibration: "no", HydroCalibration: "yes", Anomalous: "yes",
		},
		{
			RecordID: "MYR04", SiteName: "Myrmidon Reef",
			Latitude: "-18.270", Longitude: "147.380",
			Species: "Porites sp.", Proxies: "SrCa",
			NominalResolution: "Seasonal", MeanSamplesPerYear: "4",
			CoverageGroup: "<30 yr", StartYear: "-1210", EndYear: "-1190",
			SSTCalibration: "yes", HydroCalibration: "no", Anomalous: "no",
		},
	}

	rawObservations := map[string][]models.RawObservationRow{
		"DAV01": {
			{Age: "1950.2", Proxy: "SrCa", Value: "8.92"},
			{Age: "1950.8", Proxy: "SrCa", Value: "8.88"},
			{Age: "1951.1", Proxy: "BaCa", Value: "4.31"},
		},
		"HAV02": {
			{Age: "1950.5", Proxy: "Lumin", Value: "0.44"},
			{Age: "1960.5", Proxy: "Lumin", Value: "0.47"},
		},
		"MYR04": {
			{Age: "-1204.25", Proxy: "SrCa", Value: "9.01"},
			{Age: "-1203.75", Proxy: "SrCa", Value: "9.05"},
		},
	}

	ds := &dataset.Dataset{ByID: make(map[string]*models.Record)}
	conversionErrors := 0

	for i := range rawMetadata {
		record, err := rawMetadata[i].ToRecord()
		if err != nil {
			fmt.Printf("  Metadata conversion error: %v\n", err)
			conversionErrors++
			continue
		}
		ds.Records = append(ds.Records, record)
		ds.ByID[record.RecordID] = record
	}

	for recordID, rows := range rawObservations {
		for i := range rows {
			obs, err := rows[i].ToObservation(recordID)
			if err != nil {
				fmt.Printf("  Observation conversion error: %v\n", err)
				conversionErrors++
				continue
			}
			ds.Observations = append(ds.Observations, obs)
		}
	}

	fmt.Printf("Loaded %d records and %d observations (%d conversion errors)\n\n",
		len(ds.Records), len(ds.Observations), conversionErrors)

	// Demonstrate decimal-year conversion, including the pre-CE cases
	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("DECIMAL-YEAR TO CALENDAR DATE")
	fmt.Println("─────────────────────────────────────────────────────────────")

	demoAges := []struct {
		recordID string
		age      float64
	}{
		{"DAV01", 1950.2},
		{"DAV01", 1950.8},
		{"MYR04", -1204.25},
		{"DAV01", -1204.25},
	}
	for _, d := range demoAges {
		year, month := models.CalendarDate(d.age, d.recordID, models.DefaultAgeCorrections)
		fmt.Printf("  %-6s age %10.2f → year %5d, month %2d\n", d.recordID, d.age, year, month)
	}
	fmt.Println()

	// Filter: SrCa records with an SST calibration, anomalies excluded
	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("FILTERING")
	fmt.Println("─────────────────────────────────────────────────────────────")

	filterService := services.NewFilterService(logger, metricsCollector)
	yes := true
	filter := services.RecordFilter{
		ProxyContains:    "SrCa",
		SSTCalibration:   &yes,
		ExcludeAnomalous: true,
	}

	matched := filterService.FilterRecords(ctx, ds.Records, filter)
	fmt.Printf("  %d of %d records match (SrCa, SST-calibrated, no anomalies):\n",
		len(matched), len(ds.Records))
	for _, r := range matched {
		fmt.Printf("    %-6s %-18s %s, %d-%d\n",
			r.RecordID, r.SiteName, r.NominalResolution, r.StartYear, r.EndYear)
	}

	joined := services.JoinObservations(matched, ds.Observations)
	fmt.Printf("  Joined rows: %d\n\n", len(joined))

	// Reduce to per-record-per-year coverage and join onto the dense grid
	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("TEMPORAL COVERAGE")
	fmt.Println("─────────────────────────────────────────────────────────────")

	coverageService := services.NewCoverageService(logger, metricsCollector)
	reduced, err := coverageService.ReducePerYear(ctx, ds, models.DefaultAgeCorrections)
	if err != nil {
		fmt.Printf("Reduction failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  %d observations reduce to %d (record, year) rows:\n",
		len(ds.Observations), len(reduced))
	for _, ry := range reduced {
		fmt.Printf("    %-6s year %5d  %-10s %s\n",
			ry.RecordID, ry.Year, ry.CoverageGroup, ry.Resolution)
	}
	fmt.Println()

	table, err := coverageService.CoverageTable(ctx, ds, services.ByResolution, models.DefaultAgeCorrections)
	if err != nil {
		fmt.Printf("Coverage table failed: %v\n", err)
		os.Exit(1)
	}

	nonZero := 0
	perCategory := make(map[string]int)
	for _, cell := range table {
		if cell.Count > 0 {
			nonZero++
			perCategory[cell.Category] += cell.Count
		}
	}

	fmt.Printf("  Dense grid: %d rows (%d years × %d resolution categories)\n",
		len(table),
		models.GridEndYear-models.GridStartYear+1,
		len(models.ResolutionBuckets))
	fmt.Printf("  Non-zero cells: %d\n", nonZero)

	categories := make([]string, 0, len(perCategory))
	for c := range perCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Printf("    %-12s %d record-years\n", c, perCategory[c])
	}
	fmt.Println()

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("✅ DATA PROCESSING DEMONSTRATION COMPLETE")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("The system successfully:")
	fmt.Println("  ✓ Validated and converted raw metadata and observation rows")
	fmt.Println("  ✓ Converted decimal years to calendar dates (pre-CE included)")
	fmt.Println("  ✓ Filtered records by proxy, calibration and anomaly flags")
	fmt.Println("  ✓ Joined observations with record metadata")
	fmt.Println("  ✓ Reduced observations to per-record-per-year coverage")
	fmt.Println("  ✓ Joined coverage counts onto the dense year×category grid")
	fmt.Println()
	fmt.Println("With the full dataset, this pipeline would:")
	fmt.Println("  • Load metadata.csv and per-record observation CSVs")
	fmt.Println("  • Index observations into a local SQLite file")
	fmt.Println("  • Render coverage, time-series and site-map figures")
	fmt.Println()
}
