package regression

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// Config holds the scalars threaded through every best-fit evaluation
type Config struct {
	MaxRegressionDays int     // Calendar days of lookback (default: 365)
	MinRegressionDays int     // Minimum points in a candidate window (default: 20)
	LowerDeviation    float64 // Band multiplier paired with the window end (default: 2.0)
	UpperDeviation    float64 // Band multiplier paired with the window start (default: 2.0)
	UseAbsCorrelation bool    // Score windows by |r| instead of r (default: true)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxRegressionDays: 365,
		MinRegressionDays: 20,
		LowerDeviation:    2.0,
		UpperDeviation:    2.0,
		UseAbsCorrelation: true,
	}
}

// Validate checks the configuration contract. Errors wrap models.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.MinRegressionDays < 2 {
		return fmt.Errorf("%w: min_regression_days must be at least 2, got %d",
			models.ErrInvalidConfig, c.MinRegressionDays)
	}
	if c.MinRegressionDays >= c.MaxRegressionDays {
		return fmt.Errorf("%w: min_regression_days (%d) must be less than max_regression_days (%d)",
			models.ErrInvalidConfig, c.MinRegressionDays, c.MaxRegressionDays)
	}
	if !isFinite(c.LowerDeviation) || c.LowerDeviation < 0 {
		return fmt.Errorf("%w: lower_deviation must be a non-negative number, got %v",
			models.ErrInvalidConfig, c.LowerDeviation)
	}
	if !isFinite(c.UpperDeviation) || c.UpperDeviation < 0 {
		return fmt.Errorf("%w: upper_deviation must be a non-negative number, got %v",
			models.ErrInvalidConfig, c.UpperDeviation)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
