package regression

import (
	"math"
	"testing"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// linearSeries returns n consecutive calendar days starting at start with
// close = intercept + slope*t
func linearSeries(start time.Time, n int, intercept, slope float64) []models.PricePoint {
	points := make([]models.PricePoint, n)
	for t := 0; t < n; t++ {
		points[t] = models.NewPricePoint(start.AddDate(0, 0, t), intercept+slope*float64(t))
	}
	return points
}

func constantSeries(start time.Time, n int, price float64) []models.PricePoint {
	return linearSeries(start, n, price, 0)
}

func assertClose(t *testing.T, name string, want, got, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(want-got) > tol {
		t.Errorf("%s: expected %v (±%g), got %v", name, want, tol, got)
	}
}
