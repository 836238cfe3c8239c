package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	lineColor = color.RGBA{R: 218, G: 112, B: 214, A: 255}
	peakColor = color.RGBA{G: 128, A: 255}
)

// WriteChart draws the monthly flowering probabilities as a PNG line chart,
// marking the peak month with a dashed vertical line when present.
func WriteChart(w io.Writer, probs []domain.MonthlyProbability, peak *domain.PeakMonth) error {
	p := plot.New()
	p.Title.Text = "Estimated flowering probability by month"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Flowering probability (0 to 1)"
	p.Add(plotter.NewGrid())

	if len(probs) > 0 {
		xys := make(plotter.XYs, len(probs))
		for i, mp := range probs {
			xys[i].X = float64(mp.Month)
			xys[i].Y = mp.Probability
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("chart line: %w", err)
		}
		line.Color = lineColor
		line.Width = vg.Points(2)
		points.Color = lineColor
		p.Add(line, points)
	}

	if peak != nil {
		marker, err := plotter.NewLine(plotter.XYs{{X: float64(peak.Month), Y: 0}, {X: float64(peak.Month), Y: 1}})
		if err != nil {
			return fmt.Errorf("chart peak line: %w", err)
		}
		marker.Color = peakColor
		marker.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(marker)
		p.Legend.Add("Most likely month: "+peak.Name, marker)
		p.Legend.Top = true
	}

	p.X.Min, p.X.Max = 0.5, 12.5
	p.Y.Min, p.Y.Max = 0, 1
	p.X.Tick.Marker = monthTicks()

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func monthTicks() plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 12)
	for m := 1; m <= 12; m++ {
		ticks[m-1] = plot.Tick{Value: float64(m), Label: fmt.Sprint(m)}
	}
	return ticks
}
