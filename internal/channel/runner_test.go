package channel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func linearBars(symbol string, n int, intercept, slope float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	for t := 0; t < n; t++ {
		bars[t] = models.PriceBar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, t),
			Close:  intercept + slope*float64(t),
		}
	}
	return bars
}

func noiseBars(symbol string, n int, seed int64) []models.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.PriceBar, n)
	for t := 0; t < n; t++ {
		bars[t] = models.PriceBar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, t),
			Close:  50 + rng.Float64()*10,
		}
	}
	return bars
}

func newTestRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	cfg := DefaultRunnerConfig()
	cfg.WorkerCount = workers
	runner, err := NewRunner(cfg)
	require.NoError(t, err)
	return runner
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := DefaultRunnerConfig()
	cfg.Regression.MinRegressionDays = cfg.Regression.MaxRegressionDays
	_, err := NewRunner(cfg)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	cfg = DefaultRunnerConfig()
	cfg.WorkerCount = 0
	_, err = NewRunner(cfg)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestRunner_LinearAndNoise(t *testing.T) {
	runner := newTestRunner(t, 2)

	bars := append(linearBars("UP", 40, 100, 0.5), noiseBars("RND", 40, 7)...)
	table, err := runner.Run(context.Background(), bars)
	require.NoError(t, err)
	require.NotNil(t, table)

	var up []models.ChannelRow
	for _, row := range table.Rows {
		if row.Symbol == "UP" {
			up = append(up, row)
		}
	}
	// Every date from the 20th point on has a full minimum window
	require.Len(t, up, 21)
	for _, row := range up {
		assert.Greater(t, math.Abs(row.RValue), 0.99)
		assert.InDelta(t, 0.5, row.Slope, 1e-9)
	}

	latest := up[0]
	assert.True(t, latest.Date.Equal(start.AddDate(0, 0, 39)))
	assert.Equal(t, 40, latest.Length)
	assert.InDelta(t, 119.5, latest.LineEndY, 1e-9)
	assert.Equal(t, table.RunID, latest.RunID)
	assert.NotEmpty(t, table.RunID)
}

func TestRunner_ABCScenario(t *testing.T) {
	runner := newTestRunner(t, 1)

	table, err := runner.Run(context.Background(), linearBars("ABC", 30, 100, 0.5))
	require.NoError(t, err)
	require.Len(t, table.Rows, 11)

	row := table.Rows[0]
	assert.Equal(t, "ABC", row.Symbol)
	assert.Equal(t, 365, row.MaxRegressionDays)
	assert.True(t, row.BestRegressionDate.Equal(start))
	assert.Equal(t, 30, row.Length)
	assert.InDelta(t, 0.5, row.Slope, 1e-9)
	assert.InDelta(t, 1.0, row.RValue, 1e-12)
	assert.InDelta(t, 0, row.Std, 1e-9)
	assert.InDelta(t, 114.5, row.LineEndY, 1e-9)
}

func TestRunner_SortedBySymbolThenDateDesc(t *testing.T) {
	runner := newTestRunner(t, 3)

	var bars []models.PriceBar
	for _, symbol := range []string{"MSFT", "AAPL", "TSLA", "GOOG"} {
		bars = append(bars, linearBars(symbol, 25, 10, 1)...)
	}
	// Shuffle the input to make sure ordering does not leak through
	rng := rand.New(rand.NewSource(3))
	rng.Shuffle(len(bars), func(i, j int) { bars[i], bars[j] = bars[j], bars[i] })

	table, err := runner.Run(context.Background(), bars)
	require.NoError(t, err)
	require.Len(t, table.Rows, 4*6)

	for i := 1; i < len(table.Rows); i++ {
		prev, cur := table.Rows[i-1], table.Rows[i]
		if prev.Symbol == cur.Symbol {
			assert.True(t, prev.Date.After(cur.Date), "dates must be descending within %s", cur.Symbol)
		} else {
			assert.Less(t, prev.Symbol, cur.Symbol)
		}
	}

	latest := table.Latest()
	require.Len(t, latest, 4)
	assert.Equal(t, "AAPL", latest[0].Symbol)
	for _, row := range latest {
		assert.True(t, row.Date.Equal(start.AddDate(0, 0, 24)))
	}
}

func TestRunner_IdempotentAndWorkerInvariant(t *testing.T) {
	var bars []models.PriceBar
	bars = append(bars, linearBars("LIN", 60, 20, -0.25)...)
	bars = append(bars, noiseBars("N1", 60, 1)...)
	bars = append(bars, noiseBars("N2", 45, 2)...)
	bars = append(bars, noiseBars("N3", 70, 3)...)

	first, err := newTestRunner(t, 1).Run(context.Background(), bars)
	require.NoError(t, err)
	second, err := newTestRunner(t, 1).Run(context.Background(), bars)
	require.NoError(t, err)
	parallel, err := newTestRunner(t, 8).Run(context.Background(), bars)
	require.NoError(t, err)

	assert.Equal(t, first.Records(), second.Records())
	assert.Equal(t, first.Records(), parallel.Records())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunner_RunIDFromContext(t *testing.T) {
	runner := newTestRunner(t, 1)
	ctx := logger.WithRunID(context.Background(), "fixed-run")

	table, err := runner.Run(ctx, linearBars("ABC", 21, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "fixed-run", table.RunID)
	for _, row := range table.Rows {
		assert.Equal(t, "fixed-run", row.RunID)
	}
}

func TestRunner_DroppedRows(t *testing.T) {
	runner := newTestRunner(t, 2)

	var dropped []models.BestResults
	runner.SetOnDropped(func(res models.BestResults) {
		dropped = append(dropped, res)
	})

	bars := linearBars("FLAT", 25, 42, 0)
	bars = append(bars, linearBars("SHORT", 10, 5, 1)...)

	table, err := runner.Run(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	require.Len(t, dropped, 35)
	flat, short := 0, 0
	for _, res := range dropped {
		assert.False(t, res.Succeeded())
		assert.Nil(t, res.BestResult)
		assert.Error(t, res.Err)
		assert.True(t, models.IsRecoverable(res.Err))
		switch res.Symbol {
		case "FLAT":
			flat++
		case "SHORT":
			short++
			assert.ErrorIs(t, res.Err, models.ErrInsufficientData)
		}
	}
	assert.Equal(t, 25, flat)
	assert.Equal(t, 10, short)
	assert.Equal(t, "FLAT", dropped[0].Symbol)
	assert.True(t, dropped[0].Date.After(dropped[1].Date))
}

func TestRunner_DuplicateDatesLastWins(t *testing.T) {
	runner := newTestRunner(t, 1)

	bars := linearBars("DUP", 25, 100, 1)
	// A bad duplicate of the last day followed by the corrected row
	bars = append(bars,
		models.PriceBar{Symbol: "DUP", Date: start.AddDate(0, 0, 24), Close: 1},
		models.PriceBar{Symbol: "DUP", Date: start.AddDate(0, 0, 24).Add(15 * time.Hour), Close: 124},
	)

	table, err := runner.Run(context.Background(), bars)
	require.NoError(t, err)
	require.Len(t, table.Rows, 6)

	row := table.Rows[0]
	assert.InDelta(t, 1.0, row.RValue, 1e-12)
	assert.InDelta(t, 124, row.LineEndY, 1e-9)
}

func TestRunner_SkipsInvalidRows(t *testing.T) {
	runner := newTestRunner(t, 1)

	bars := linearBars("ABC", 20, 10, 1)
	bars = append(bars,
		models.PriceBar{Symbol: "ABC", Date: start.AddDate(0, 0, 20), Close: math.NaN()},
		models.PriceBar{Symbol: "", Date: start, Close: 10},
		models.PriceBar{Symbol: "ABC", Date: start.AddDate(0, 0, 21), Close: -3},
	)

	table, err := runner.Run(context.Background(), bars)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.True(t, table.Rows[0].Date.Equal(start.AddDate(0, 0, 19)))
}

func TestRunner_Cancelled(t *testing.T) {
	runner := newTestRunner(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := runner.Run(ctx, linearBars("ABC", 30, 100, 0.5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, table)
}

func TestRunner_EmptyInput(t *testing.T) {
	runner := newTestRunner(t, 4)
	table, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Latest())
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", outcomeLabel(nil))
	assert.Equal(t, "no_valid_window", outcomeLabel(models.ErrNoValidWindow))
	assert.Equal(t, "degenerate_fit", outcomeLabel(models.ErrDegenerateFit))
	assert.Equal(t, "insufficient_data", outcomeLabel(models.ErrInsufficientData))
	assert.Equal(t, "error", outcomeLabel(errors.New("mismatched input lengths")))
}

// countdownContext reports cancellation once Err has been polled n times
type countdownContext struct {
	context.Context
	remaining int
}

func (c *countdownContext) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}
	c.remaining--
	return nil
}

func TestRunner_EvaluateSymbolStopsMidSeries(t *testing.T) {
	runner := newTestRunner(t, 1)

	var series []models.PricePoint
	for _, bar := range linearBars("LONG", 30, 100, 0.5) {
		series = append(series, models.NewPricePoint(bar.Date, bar.Close))
	}

	ctx := &countdownContext{Context: context.Background(), remaining: 25}
	var out workerOutput
	err := runner.evaluateSymbol(ctx, "run-1", "LONG", series, &out)

	assert.ErrorIs(t, err, context.Canceled)
	// 25 dates evaluated: the first 19 lack a full window, the next 6 succeed
	assert.Len(t, out.dropped, 19)
	assert.Len(t, out.rows, 6)
}
