package regression

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// BestFit evaluates one (symbol, date) pair: build the window, scan it for
// the most linear suffix, fit that suffix and derive the channel.
//
// Any data condition (too few points, flat prices, degenerate fit) yields a
// result carrying only symbol, max_regression_days, date and
// earliest_start_date, with the cause in Err. BestFit never panics on data.
func BestFit(symbol string, series []models.PricePoint, date time.Time, cfg Config) models.BestResults {
	day := models.TruncateDay(date)
	out := models.BestResults{
		Symbol:            symbol,
		MaxRegressionDays: cfg.MaxRegressionDays,
		Date:              day,
		EarliestStartDate: EarliestStart(day, cfg.MaxRegressionDays),
	}

	window, err := NewSeriesWindow(series, day, cfg)
	if err != nil {
		out.Err = err
		return out
	}

	best, err := ScanBestCorrelation(window.X(), window.Y(), window.Dates(), cfg.MinRegressionDays, cfg.UseAbsCorrelation)
	if err != nil {
		out.Err = err
		return out
	}

	result, err := FitRegression(window.Between(best.Date, day))
	if err != nil {
		out.Err = fmt.Errorf("fit %s from %s: %w", symbol, best.Date.Format(models.DateLayout), err)
		return out
	}

	lines := BuildChannelLines(result, cfg.LowerDeviation, cfg.UpperDeviation)
	start := best.Date

	out.BestRegressionDate = &start
	out.BestResult = result
	out.BestLines = &lines
	return out
}
