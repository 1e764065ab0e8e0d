// Package charts renders the analysis figures: proxy time series, stacked
// record comparisons, site maps, and temporal-coverage area charts. The
// output format follows the file extension (.png, .svg, .pdf).
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
	"gbr-coraldb/pkg/metrics"
)

// Renderer draws figures from loaded dataset tables
type Renderer struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRenderer creates a new figure renderer
func NewRenderer(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Renderer {
	return &Renderer{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Series is one named proxy series of (age, value) points.
type Series struct {
	Name         string
	Observations []*models.Observation
}

// TimeSeries renders one or more proxy series as lines on a shared
// decimal-year axis.
func (r *Renderer) TimeSeries(ctx context.Context, title, yLabel string, series []Series, path string) error {
	timer := r.metrics.NewTimer(r.metrics.RenderDuration.WithLabelValues("timeseries"))
	defer timer.ObserveDuration()

	if len(series) == 0 {
		r.metrics.RecordRenderError("timeseries")
		return fmt.Errorf("no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = yLabel

	for i, s := range series {
		line, err := plotter.NewLine(seriesXYs(s.Observations, 0))
		if err != nil {
			r.metrics.RecordRenderError("timeseries")
			return fmt.Errorf("failed to build line for %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		r.metrics.RecordRenderError("timeseries")
		return fmt.Errorf("failed to save time-series plot: %w", err)
	}

	r.logger.Debug(ctx, "[RENDER_TIMESERIES] Time-series plot written", logging.Fields{
		"path":   path,
		"series": len(series),
	})

	return nil
}

// StackedSeries renders several series on a shared age axis, each shifted
// by a vertical offset so gapped records can be compared without overlap.
// Series are drawn bottom-up in input order.
func (r *Renderer) StackedSeries(ctx context.Context, title string, series []Series, offset float64, path string) error {
	timer := r.metrics.NewTimer(r.metrics.RenderDuration.WithLabelValues("stacked_series"))
	defer timer.ObserveDuration()

	if len(series) == 0 {
		r.metrics.RecordRenderError("stacked_series")
		return fmt.Errorf("no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Value (offset per record)"

	for i, s := range series {
		line, err := plotter.NewLine(seriesXYs(s.Observations, float64(i)*offset))
		if err != nil {
			r.metrics.RecordRenderError("stacked_series")
			return fmt.Errorf("failed to build line for %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := p.Save(10*vg.Inch, vg.Length(2+len(series))*vg.Inch, path); err != nil {
		r.metrics.RecordRenderError("stacked_series")
		return fmt.Errorf("failed to save stacked plot: %w", err)
	}

	r.logger.Debug(ctx, "[RENDER_STACKED] Stacked time-series plot written", logging.Fields{
		"path":   path,
		"series": len(series),
	})

	return nil
}

// SiteMap renders record sites as a lon/lat scatter with site labels.
// No basemap is drawn; the scatter stands on plain axes.
func (r *Renderer) SiteMap(ctx context.Context, title string, records []*models.Record, path string) error {
	timer := r.metrics.NewTimer(r.metrics.RenderDuration.WithLabelValues("site_map"))
	defer timer.ObserveDuration()

	if len(records) == 0 {
		r.metrics.RecordRenderError("site_map")
		return fmt.Errorf("no records to map")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude (°E)"
	p.Y.Label.Text = "Latitude (°N)"

	pts := make(plotter.XYs, len(records))
	names := make([]string, len(records))
	for i, rec := range records {
		pts[i].X = rec.Longitude
		pts[i].Y = rec.Latitude
		names[i] = rec.SiteName
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		r.metrics.RecordRenderError("site_map")
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = plotutil.Color(0)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: names})
	if err != nil {
		r.metrics.RecordRenderError("site_map")
		return fmt.Errorf("failed to build labels: %w", err)
	}

	p.Add(scatter, labels)

	if err := p.Save(7*vg.Inch, 7*vg.Inch, path); err != nil {
		r.metrics.RecordRenderError("site_map")
		return fmt.Errorf("failed to save site map: %w", err)
	}

	r.logger.Debug(ctx, "[RENDER_MAP] Site map written", logging.Fields{
		"path":  path,
		"sites": len(records),
	})

	return nil
}

func seriesXYs(observations []*models.Observation, shift float64) plotter.XYs {
	sorted := make([]*models.Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Age < sorted[j].Age })

	pts := make(plotter.XYs, len(sorted))
	for i, obs := range sorted {
		pts[i].X = obs.Age
		pts[i].Y = obs.Value + shift
	}
	return pts
}
