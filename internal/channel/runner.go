package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
	"github.com/mohamedkhairy/trend-channel/pkg/regression"
)

// RunnerConfig holds configuration for the batch runner
type RunnerConfig struct {
	Regression  regression.Config
	WorkerCount int // Symbols are split across this many workers (default: 4)
}

// DefaultRunnerConfig returns default configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Regression:  regression.DefaultConfig(),
		WorkerCount: 4,
	}
}

// Runner evaluates the best-fit channel for every (symbol, date) of a price table
type Runner struct {
	config      RunnerConfig
	partitioner *Partitioner
	onDropped   func(models.BestResults)
}

// NewRunner validates the configuration and creates a runner
func NewRunner(config RunnerConfig) (*Runner, error) {
	if err := config.Regression.Validate(); err != nil {
		return nil, err
	}
	partitioner, err := NewPartitioner(config.WorkerCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	return &Runner{
		config:      config,
		partitioner: partitioner,
	}, nil
}

// SetOnDropped registers a hook that observes every failed evaluation before
// it is filtered out. Called from the collecting goroutine, in output order.
func (r *Runner) SetOnDropped(fn func(models.BestResults)) {
	r.onDropped = fn
}

// workerOutput is the buffer owned by one worker
type workerOutput struct {
	rows    []models.ChannelRow
	dropped []models.BestResults
}

// Run evaluates every distinct date of every symbol in bars.
// Data problems only drop rows; the error is non-nil only when ctx is done.
func (r *Runner) Run(ctx context.Context, bars []models.PriceBar) (*Table, error) {
	start := time.Now()

	runID := logger.GetRunID(ctx)
	if runID == "" {
		runID = logger.NewRunID()
		ctx = logger.WithRunID(ctx, runID)
	}
	log := logger.WithContext(ctx)

	series := r.groupSeries(ctx, bars)
	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	log.Info("Starting channel batch",
		logger.Int("rows", len(bars)),
		logger.Int("symbols", len(symbols)),
		logger.Int("workers", r.config.WorkerCount),
	)

	buckets := r.partitioner.Assign(symbols)
	outputs := make([]workerOutput, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	for w := range buckets {
		w := w
		g.Go(func() error {
			for _, symbol := range buckets[w] {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := r.evaluateSymbol(gctx, runID, symbol, series[symbol], &outputs[w]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("Channel batch aborted", logger.ErrorField(err))
		return nil, err
	}

	table := &Table{RunID: runID}
	var dropped []models.BestResults
	for _, out := range outputs {
		table.Rows = append(table.Rows, out.rows...)
		dropped = append(dropped, out.dropped...)
	}
	sortRows(table.Rows)

	if r.onDropped != nil {
		sort.SliceStable(dropped, func(i, j int) bool {
			if dropped[i].Symbol != dropped[j].Symbol {
				return dropped[i].Symbol < dropped[j].Symbol
			}
			return dropped[i].Date.After(dropped[j].Date)
		})
		for _, res := range dropped {
			r.onDropped(res)
		}
	}

	elapsed := time.Since(start)
	batchDuration.Observe(elapsed.Seconds())
	log.Info("Channel batch complete",
		logger.Int("rows", table.Len()),
		logger.Int("dropped", len(dropped)),
		logger.Duration("duration", elapsed),
	)
	return table, nil
}

// groupSeries validates bars and builds one ascending, date-unique series per symbol.
// When a date repeats the row appearing last in bars wins.
func (r *Runner) groupSeries(ctx context.Context, bars []models.PriceBar) map[string][]models.PricePoint {
	log := logger.WithContext(ctx)

	grouped := make(map[string][]models.PricePoint)
	invalid := 0
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			invalid++
			log.Debug("Skipping invalid price row",
				logger.String("symbol", bars[i].Symbol),
				logger.Time("date", bars[i].Date),
				logger.ErrorField(err),
			)
			continue
		}
		grouped[bars[i].Symbol] = append(grouped[bars[i].Symbol],
			models.NewPricePoint(bars[i].Date, bars[i].Close))
	}
	if invalid > 0 {
		log.Warn("Skipped invalid price rows", logger.Int("count", invalid))
	}

	for symbol, points := range grouped {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Ordinal < points[j].Ordinal })

		deduped := points[:0]
		duplicates := 0
		for _, p := range points {
			if n := len(deduped); n > 0 && deduped[n-1].Ordinal == p.Ordinal {
				deduped[n-1] = p
				duplicates++
				continue
			}
			deduped = append(deduped, p)
		}
		if duplicates > 0 {
			log.Warn("Duplicate dates in price series, keeping the last row",
				logger.String("symbol", symbol),
				logger.Int("duplicates", duplicates),
			)
		}
		grouped[symbol] = deduped
	}
	return grouped
}

// evaluateSymbol runs the best fit for every date of one series into out.
// It stops at the first date after ctx is done.
func (r *Runner) evaluateSymbol(ctx context.Context, runID, symbol string, series []models.PricePoint, out *workerOutput) error {
	log := logger.WithContext(logger.WithSymbol(ctx, symbol))
	succeeded := 0

	for _, p := range series {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := regression.BestFit(symbol, series, p.Date, r.config.Regression)
		evaluationsTotal.WithLabelValues(outcomeLabel(res.Err)).Inc()

		row, ok := models.NewChannelRow(&res)
		if !ok {
			if res.Err != nil && !models.IsRecoverable(res.Err) {
				log.Error("Unexpected evaluation failure",
					logger.Time("date", p.Date),
					logger.ErrorField(res.Err),
				)
			}
			out.dropped = append(out.dropped, res)
			continue
		}
		row.RunID = runID
		windowLength.Observe(float64(row.Length))
		out.rows = append(out.rows, row)
		succeeded++
	}

	symbolsProcessed.Inc()
	log.Debug("Symbol evaluated",
		logger.Int("dates", len(series)),
		logger.Int("rows", succeeded),
	)
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrNoValidWindow):
		return "no_valid_window"
	case errors.Is(err, models.ErrDegenerateFit):
		return "degenerate_fit"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	default:
		return "error"
	}
}
