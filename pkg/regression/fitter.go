package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// FitRegression runs ordinary least squares of close on ordinal over points.
// points must be sorted by date ascending.
//
// Std is the sample standard deviation (divisor n-1) of the residuals.
func FitRegression(points []models.PricePoint) (*models.RegressionResult, error) {
	n := len(points)
	if n < 2 || points[0].Ordinal == points[n-1].Ordinal {
		return nil, fmt.Errorf("%w: %d points", models.ErrDegenerateFit, n)
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range points {
		x[i] = float64(p.Ordinal)
		y[i] = p.Close
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	residuals := make([]float64, n)
	for i := range x {
		residuals[i] = y[i] - (slope*x[i] + intercept)
	}

	r, pValue, stdErr := slopeStatistics(x, y)

	start, end := points[0], points[n-1]
	return &models.RegressionResult{
		Start:        start.Date,
		End:          end.Date,
		Length:       int(end.Ordinal-start.Ordinal) + 1,
		StartOrdinal: start.Ordinal,
		EndOrdinal:   end.Ordinal,
		Slope:        slope,
		Intercept:    intercept,
		RValue:       r,
		PValue:       pValue,
		StdErr:       stdErr,
		Std:          stat.StdDev(residuals, nil),
	}, nil
}

// slopeStatistics returns Pearson r, the two-sided p-value of the slope
// against a zero-slope null and the standard error of the slope.
func slopeStatistics(x, y []float64) (r, pValue, stdErr float64) {
	n := len(x)
	meanX, meanY := stat.Mean(x, nil), stat.Mean(y, nil)

	var sxx, syy, sxy float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	if sxx == 0 || syy == 0 {
		r = 0
	} else {
		r = math.Max(-1, math.Min(1, sxy/math.Sqrt(sxx*syy)))
	}

	if n == 2 {
		if y[0] == y[1] {
			return r, 1, 0
		}
		return r, 0, 0
	}

	df := float64(n - 2)
	if sxx == 0 {
		return r, math.NaN(), math.NaN()
	}
	stdErr = math.Sqrt((1 - r*r) * syy / sxx / df)

	// Keeps t finite when |r| == 1
	const tiny = 1e-20
	t := r * math.Sqrt(df/((1-r+tiny)*(1+r+tiny)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * dist.Survival(math.Abs(t))

	return r, pValue, stdErr
}
