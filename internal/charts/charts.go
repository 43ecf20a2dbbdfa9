package charts

import (
	"bytes"
	"fmt"
	"image/color"

	"magistrant/internal/curriculum"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const curveSamples = 500

var (
	barColor   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	curveColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	pointColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

func hours(records []curriculum.Record) plotter.Values {
	values := make(plotter.Values, len(records))
	for i, r := range records {
		values[i] = float64(r.Hours)
	}
	return values
}

func names(records []curriculum.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func render(p *plot.Plot, width, height vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	_, err = writer.WriteTo(&buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// HoursBar renders a horizontal bar per discipline, as a PNG.
func HoursBar(records []curriculum.Record, term int) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("charts: no records")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Учебная нагрузка за %d семестр", term)
	p.X.Label.Text = "Часы"

	bars, err := plotter.NewBarChart(hours(records), vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names(records)...)
	p.Add(plotter.NewGrid())

	height := vg.Length(len(records))*vg.Points(22) + 2*vg.Inch
	return render(p, 10*vg.Inch, height)
}

// HoursCurve renders the hours of each discipline as a smooth curve over
// their order in the curriculum, with the actual values marked on it.
func HoursCurve(records []curriculum.Record) ([]byte, error) {
	if len(records) < 2 {
		return nil, ErrTooFewPoints
	}

	values := hours(records)
	xs, ys, err := Interpolate(values, curveSamples)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Распределение часов по дисциплинам"
	p.Y.Label.Text = "Часы"

	curvePoints := make(plotter.XYs, len(xs))
	for i := range xs {
		curvePoints[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	curve, err := plotter.NewLine(curvePoints)
	if err != nil {
		return nil, err
	}
	curve.LineStyle.Color = curveColor
	curve.LineStyle.Width = vg.Points(2)

	rawPoints := make(plotter.XYs, len(values))
	for i, v := range values {
		rawPoints[i] = plotter.XY{X: float64(i), Y: v}
	}
	scatter, err := plotter.NewScatter(rawPoints)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = pointColor
	scatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(plotter.NewGrid(), curve, scatter)
	p.Legend.Add("Интерполяция", curve)
	p.Legend.Add("Исходные данные", scatter)
	p.Legend.Top = true
	p.NominalX(names(records)...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1

	width := vg.Length(len(records))*vg.Points(40) + 4*vg.Inch
	return render(p, width, 6*vg.Inch)
}
