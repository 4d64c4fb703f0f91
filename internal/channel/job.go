package channel

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/trend-channel/internal/storage"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// Stages reported through Job.OnStage
const (
	StageLoading    = "loading"
	StageComputing  = "computing"
	StageWriting    = "writing"
	StagePublishing = "publishing"
	StageDone       = "done"
)

// Job is one storage-backed batch: load prices, compute channels, persist
// the regression table and publish the latest channel of each symbol.
type Job struct {
	Prices    storage.PriceStorage
	Channels  storage.ChannelStorage
	Runner    *Runner
	Publisher *Publisher // nil disables publishing

	Symbols []string // empty loads every symbol
	DryRun  bool     // compute only, no writes

	OnStage func(stage string)
}

// Execute runs the job. Load, compute and write failures are returned;
// publish failures are only logged since the table is already persisted.
func (j *Job) Execute(ctx context.Context) (*Table, error) {
	log := logger.WithContext(ctx)

	j.stage(StageLoading)
	bars, err := j.Prices.LoadPrices(ctx, j.Symbols)
	if err != nil {
		return nil, err
	}

	j.stage(StageComputing)
	table, err := j.Runner.Run(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("channel run interrupted: %w", err)
	}

	if j.DryRun {
		log.Info("Dry run, skipping writes", logger.Int("rows", table.Len()))
		j.stage(StageDone)
		return table, nil
	}

	j.stage(StageWriting)
	if err := j.Channels.WriteChannels(ctx, table.Rows); err != nil {
		return table, err
	}

	if j.Publisher != nil {
		j.stage(StagePublishing)
		if _, err := j.Publisher.PublishLatest(ctx, table); err != nil {
			log.Error("Failed to publish latest channels", logger.ErrorField(err))
		}
	}

	j.stage(StageDone)
	return table, nil
}

func (j *Job) stage(stage string) {
	if j.OnStage != nil {
		j.OnStage(stage)
	}
}
