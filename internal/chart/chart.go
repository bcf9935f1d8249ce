// Package chart renders monthly series as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/wupmaz/labordash/internal/aggregate"
)

// ErrNoData is returned for a series without points.
var ErrNoData = errors.New("series has no points")

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var lineBlue = color.RGBA{R: 37, G: 99, B: 235, A: 255}

// Spec describes one chart.
type Spec struct {
	Title  string
	YLabel string
	Points []aggregate.Point
	Width  vg.Length
	Height vg.Length
}

// PNG draws the series and writes it as PNG.
func PNG(w io.Writer, s Spec) error {
	p, err := build(s)
	if err != nil {
		return err
	}
	width, height := s.Width, s.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	return nil
}

func build(s Spec) (*plot.Plot, error) {
	if len(s.Points) == 0 {
		return nil, ErrNoData
	}

	labels := make([]string, len(s.Points))
	pts := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		labels[i] = shortLabel(pt.Year, pt.Month)
		pts[i] = plotter.XY{X: float64(i), Y: pt.Value}
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.Text = s.YLabel
	p.BackgroundColor = color.White

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("building line: %w", err)
	}
	line.Color = lineBlue
	line.Width = vg.Points(2)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("building markers: %w", err)
	}
	scatter.Color = lineBlue
	scatter.Radius = vg.Points(3)
	scatter.Shape = draw.CircleGlyph{}

	p.Add(line, scatter, plotter.NewGrid())

	p.X.Tick.Marker = periodTicks(labels)
	p.X.Min = -0.5
	p.X.Max = float64(len(labels)) - 0.5
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	p.Y.Tick.Marker = numTicks{}
	return p, nil
}

// shortLabel formats a period as MM.YYYY.
func shortLabel(year, month int) string {
	return fmt.Sprintf("%02d.%d", month, year)
}

type periodTicks []string

func (pt periodTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	n := len(pt)
	if n == 0 {
		return ticks
	}

	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}

	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = pt[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = compact(ticks[i].Value)
		}
	}
	return ticks
}

// compact shortens thousands ("12.5k"); values under a thousand keep one
// decimal place at most.
func compact(v float64) string {
	if math.Abs(v) >= 1000 {
		return strconv.FormatFloat(v/1000, 'f', -1, 64) + "k"
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
