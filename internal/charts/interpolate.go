package charts

import (
	"errors"

	"gonum.org/v1/gonum/interp"
)

var ErrTooFewPoints = errors.New("charts: at least two points are needed")

// cubicMinPoints is the smallest input a natural cubic spline is fitted to,
// shorter inputs are joined with straight segments.
const cubicMinPoints = 4

type predictor interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

// Interpolate fits a smooth curve through (i, ys[i]) and samples it at
// evenly spaced points from the first to the last index.
func Interpolate(ys []float64, samples int) (xs, out []float64, err error) {
	if len(ys) < 2 {
		return nil, nil, ErrTooFewPoints
	}
	if samples < 2 {
		samples = 2
	}

	knots := make([]float64, len(ys))
	for i := range knots {
		knots[i] = float64(i)
	}

	var fn predictor = &interp.PiecewiseLinear{}
	if len(ys) >= cubicMinPoints {
		fn = &interp.NaturalCubic{}
	}
	err = fn.Fit(knots, ys)
	if err != nil {
		return nil, nil, err
	}

	last := knots[len(knots)-1]
	xs = make([]float64, samples)
	out = make([]float64, samples)
	for i := range xs {
		x := last * float64(i) / float64(samples-1)
		xs[i] = x
		out[i] = fn.Predict(x)
	}
	return xs, out, nil
}
