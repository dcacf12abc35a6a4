// Package charts renders summary tables as PNG images with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/types"
)

var (
	// ErrNegativeMinimum blocks a weekly chart whose field has a negative
	// weekly minimum; shares of a total are meaningless there.
	ErrNegativeMinimum = errors.New("negative values present")
	ErrNoData          = errors.New("no data")
)

const (
	width  = 16 * vg.Centimeter
	height = 10 * vg.Centimeter
	format = "png"
)

var palette = []color.Color{
	color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
	color.RGBA{R: 0x21, G: 0x91, B: 0x8c, A: 0xff},
	color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
	color.RGBA{R: 0x3b, G: 0x52, B: 0x8b, A: 0xff},
}

// MonthlyLine plots one line per field for the given statistic with the
// months on the X axis. Missing months leave a gap in the line.
func MonthlyLine(w io.Writer, t *aggregate.SummaryTable[int], fields []types.Field, stat aggregate.Statistic, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Month"
	p.Y.Label.Text = string(stat)
	p.X.Min, p.X.Max = 1, 12
	p.X.Tick.Marker = monthTicks()
	p.Add(plotter.NewGrid())

	for i, f := range fields {
		col := aggregate.ColumnName(f, stat)
		var pts plotter.XYs
		for _, m := range t.Keys() {
			v := t.Value(m, col)
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(m), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", col, err)
		}
		c := palette[i%len(palette)]
		line.Color = c
		points.Color = c
		p.Add(line, points)
		p.Legend.Add(string(f), line, points)
	}
	p.Legend.Top = true

	return writePlot(w, p)
}

// SeasonalBar plots one bar per season present in the table.
func SeasonalBar(w io.Writer, t *aggregate.SummaryTable[bucket.Season], column string, title string) error {
	keys := t.Keys()
	if len(keys) == 0 {
		return emptyPlot(w, title)
	}
	values := make(plotter.Values, len(keys))
	names := make([]string, len(keys))
	for i, k := range keys {
		values[i] = zeroIfNaN(t.Value(k, column))
		names[i] = string(k)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = column
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("bars %s: %w", column, err)
	}
	bars.Color = palette[1]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	return writePlot(w, p)
}

// WeeklyLabels formats the week labels as "Week i (value unit)".
func WeeklyLabels(t *aggregate.SummaryTable[int], field types.Field) []string {
	col := aggregate.ColumnName(field, aggregate.Mean)
	var out []string
	for _, k := range t.Keys() {
		out = append(out, fmt.Sprintf("Week %d (%.2f %s)", k, t.Value(k, col), field.Unit()))
	}
	return out
}

// CheckWeekly reports whether a weekly chart can be drawn for field.
func CheckWeekly(t *aggregate.SummaryTable[int], field types.Field) error {
	lowest := t.ColumnMin(aggregate.ColumnName(field, aggregate.Min))
	if math.IsNaN(lowest) {
		return ErrNoData
	}
	if lowest < 0 {
		return ErrNegativeMinimum
	}
	return nil
}

// WeeklyShare draws each week's mean as a share of the sum of weekly means.
func WeeklyShare(w io.Writer, t *aggregate.SummaryTable[int], field types.Field, title string) error {
	if err := CheckWeekly(t, field); err != nil {
		return err
	}
	col := aggregate.ColumnName(field, aggregate.Mean)
	keys := t.Keys()
	means := make([]float64, len(keys))
	var total float64
	for i, k := range keys {
		means[i] = zeroIfNaN(t.Value(k, col))
		total += means[i]
	}
	shares := make(plotter.Values, len(keys))
	for i, v := range means {
		if total > 0 {
			shares[i] = 100 * v / total
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "% of total"
	bars, err := plotter.NewBarChart(shares, vg.Points(30))
	if err != nil {
		return fmt.Errorf("bars %s: %w", col, err)
	}
	bars.Color = palette[0]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(WeeklyLabels(t, field)...)

	return writePlot(w, p)
}

func emptyPlot(w io.Writer, title string) error {
	p := plot.New()
	p.Title.Text = title + " (no data)"
	p.HideAxes()
	return writePlot(w, p)
}

func writePlot(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

func monthTicks() plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 12)
	for m := 1; m <= 12; m++ {
		ticks[m-1] = plot.Tick{Value: float64(m), Label: time.Month(m).String()[:3]}
	}
	return ticks
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
