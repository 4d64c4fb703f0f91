package regression

import (
	"fmt"
	"sort"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// SeriesWindow is the date-ascending slice of a symbol's series that ends at
// the evaluation date and reaches back at most MaxRegressionDays.
type SeriesWindow struct {
	date          time.Time
	earliestStart time.Time
	points        []models.PricePoint
}

// EarliestStart returns date minus maxDays calendar days
func EarliestStart(date time.Time, maxDays int) time.Time {
	return models.TruncateDay(date).AddDate(0, 0, -maxDays)
}

// NewSeriesWindow extracts the window for date from series.
// series must be sorted by date ascending; the window gets its own copy.
func NewSeriesWindow(series []models.PricePoint, date time.Time, cfg Config) (*SeriesWindow, error) {
	day := models.TruncateDay(date)
	earliest := EarliestStart(day, cfg.MaxRegressionDays)

	lo := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(earliest)
	})
	hi := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(day)
	})

	points := make([]models.PricePoint, hi-lo)
	copy(points, series[lo:hi])
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	if len(points) == 0 || !points[len(points)-1].Date.Equal(day) {
		return nil, fmt.Errorf("%w: %w: %s", models.ErrInsufficientData,
			models.ErrEvaluationDateMissing, day.Format(models.DateLayout))
	}
	if len(points) < cfg.MinRegressionDays {
		return nil, fmt.Errorf("%w: %d points in [%s, %s], need %d",
			models.ErrInsufficientData, len(points),
			earliest.Format(models.DateLayout), day.Format(models.DateLayout),
			cfg.MinRegressionDays)
	}

	return &SeriesWindow{
		date:          day,
		earliestStart: earliest,
		points:        points,
	}, nil
}

// Date returns the evaluation date
func (w *SeriesWindow) Date() time.Time {
	return w.date
}

// EarliestStart returns the earliest date the window may reach
func (w *SeriesWindow) EarliestStart() time.Time {
	return w.earliestStart
}

// Len returns the number of points
func (w *SeriesWindow) Len() int {
	return len(w.points)
}

// Points returns the window points. Callers must not modify them.
func (w *SeriesWindow) Points() []models.PricePoint {
	return w.points
}

// Dates returns the calendar date of every point
func (w *SeriesWindow) Dates() []time.Time {
	dates := make([]time.Time, len(w.points))
	for i, p := range w.points {
		dates[i] = p.Date
	}
	return dates
}

// X returns the ordinals as regression x values
func (w *SeriesWindow) X() []float64 {
	x := make([]float64, len(w.points))
	for i, p := range w.points {
		x[i] = float64(p.Ordinal)
	}
	return x
}

// Y returns the closing prices
func (w *SeriesWindow) Y() []float64 {
	y := make([]float64, len(w.points))
	for i, p := range w.points {
		y[i] = p.Close
	}
	return y
}

// Between returns the points with start <= date <= end
func (w *SeriesWindow) Between(start, end time.Time) []models.PricePoint {
	lo := sort.Search(len(w.points), func(i int) bool {
		return !w.points[i].Date.Before(start)
	})
	hi := sort.Search(len(w.points), func(i int) bool {
		return w.points[i].Date.After(end)
	})
	return w.points[lo:hi]
}
