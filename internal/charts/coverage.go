package charts

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"gbr-coraldb/internal/models"
	"gbr-coraldb/pkg/logging"
)

// CoverageArea renders the joined dense (year, category, count) table as a
// stacked area chart: one band per category in rank order, lowest rank at
// the bottom. The table must be dense (every (year, category) pair present
// exactly once), otherwise the stacking is not well-defined.
func (r *Renderer) CoverageArea(ctx context.Context, title string, table []models.YearCategoryCount, path string) error {
	timer := r.metrics.NewTimer(r.metrics.RenderDuration.WithLabelValues("coverage_area"))
	defer timer.ObserveDuration()

	years, labels, counts, err := coverageLayout(table)
	if err != nil {
		r.metrics.RecordRenderError("coverage_area")
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Records"

	// Cumulative counts per year up to each rank; band k occupies the
	// region between cumulative k-1 and cumulative k.
	cumulative := make([]plotter.XYs, len(labels))
	for k := range labels {
		pts := make(plotter.XYs, len(years))
		for i, year := range years {
			total := 0.0
			for j := 0; j <= k; j++ {
				total += float64(counts[j][i])
			}
			pts[i].X = float64(year)
			pts[i].Y = total
		}
		cumulative[k] = pts
	}

	// Fill each cumulative outline down to zero; drawing from the top
	// band down leaves exactly one band's color visible per region.
	for k := len(labels) - 1; k >= 0; k-- {
		line, err := plotter.NewLine(cumulative[k])
		if err != nil {
			r.metrics.RecordRenderError("coverage_area")
			return fmt.Errorf("failed to build band %s: %w", labels[k], err)
		}
		line.Color = plotutil.Color(k)
		line.FillColor = plotutil.Color(k)
		p.Add(line)
	}

	// Legend entries in rank order, top band first to match the picture.
	for k := len(labels) - 1; k >= 0; k-- {
		marker, err := plotter.NewLine(plotter.XYs{})
		if err != nil {
			r.metrics.RecordRenderError("coverage_area")
			return fmt.Errorf("failed to build legend marker: %w", err)
		}
		marker.Color = plotutil.Color(k)
		marker.FillColor = plotutil.Color(k)
		p.Legend.Add(labels[k], marker)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(12*vg.Inch, 4*vg.Inch, path); err != nil {
		r.metrics.RecordRenderError("coverage_area")
		return fmt.Errorf("failed to save coverage chart: %w", err)
	}

	r.logger.Debug(ctx, "[RENDER_COVERAGE] Coverage area chart written", logging.Fields{
		"path":       path,
		"years":      len(years),
		"categories": len(labels),
	})

	return nil
}

// coverageLayout reshapes the dense table into per-rank count vectors over
// a sorted year axis, verifying density on the way.
func coverageLayout(table []models.YearCategoryCount) (years []int, labels []string, counts [][]int, err error) {
	if len(table) == 0 {
		return nil, nil, nil, fmt.Errorf("empty coverage table")
	}

	yearSet := make(map[int]bool)
	labelByRank := make(map[int]string)
	for _, cell := range table {
		if cell.Rank < 0 {
			return nil, nil, nil, fmt.Errorf("category %q has no rank", cell.Category)
		}
		yearSet[cell.Year] = true
		if prev, ok := labelByRank[cell.Rank]; ok && prev != cell.Category {
			return nil, nil, nil, fmt.Errorf("rank %d maps to both %q and %q", cell.Rank, prev, cell.Category)
		}
		labelByRank[cell.Rank] = cell.Category
	}

	years = make([]int, 0, len(yearSet))
	for year := range yearSet {
		years = append(years, year)
	}
	sort.Ints(years)

	yearIndex := make(map[int]int, len(years))
	for i, year := range years {
		yearIndex[year] = i
	}

	labels = make([]string, len(labelByRank))
	for rank, label := range labelByRank {
		if rank >= len(labels) {
			return nil, nil, nil, fmt.Errorf("category ranks are not contiguous")
		}
		labels[rank] = label
	}

	if len(table) != len(years)*len(labels) {
		return nil, nil, nil, fmt.Errorf("coverage table is not dense: %d rows for %d years x %d categories",
			len(table), len(years), len(labels))
	}

	counts = make([][]int, len(labels))
	for k := range counts {
		counts[k] = make([]int, len(years))
	}
	filled := make(map[[2]int]bool, len(table))
	for _, cell := range table {
		key := [2]int{cell.Rank, yearIndex[cell.Year]}
		if filled[key] {
			return nil, nil, nil, fmt.Errorf("duplicate cell for %q in year %d", cell.Category, cell.Year)
		}
		filled[key] = true
		counts[cell.Rank][yearIndex[cell.Year]] = cell.Count
	}

	return years, labels, counts, nil
}
