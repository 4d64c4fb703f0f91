package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohamedkhairy/trend-channel/internal/channel"
	"github.com/mohamedkhairy/trend-channel/internal/config"
	"github.com/mohamedkhairy/trend-channel/internal/pubsub"
	"github.com/mohamedkhairy/trend-channel/internal/storage"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// runCmd computes channels from the price table in Postgres
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute channels from Postgres prices and persist them",
	Long: `Load the configured price table from Postgres, evaluate every (symbol, date),
upsert the regression table and, when PUBLISHER_ENABLED is set, cache the
latest channel of each symbol in Redis.

Examples:
  channels run
  channels run --symbols AAPL,MSFT --workers 8
  channels run --dry-run`,
	RunE: runChannels,
}

var (
	runSymbols []string
	runWorkers int
	runDryRun  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "Restrict the run to these symbols (default: RUNNER_SYMBOLS or all)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Worker count (default: RUNNER_WORKER_COUNT)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Compute without writing to Postgres or Redis")
}

func runChannels(cmd *cobra.Command, args []string) error {
	cfg := appConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.WithContext(ctx)

	log.Info("Starting channel run",
		logger.String("environment", cfg.Environment),
		logger.Int("max_regression_days", cfg.Regression.MaxRegressionDays),
		logger.Int("min_regression_days", cfg.Regression.MinRegressionDays),
		logger.Bool("dry_run", runDryRun),
	)

	health := newHealthState()
	if cfg.MetricsPort > 0 {
		server := newHealthServer(cfg.MetricsPort, health)
		go func() {
			logger.Info("Starting health and metrics server", logger.Int("port", cfg.MetricsPort))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Health and metrics server failed", logger.ErrorField(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Health server shutdown failed", logger.ErrorField(err))
			}
		}()
	}

	store, err := storage.NewPostgresStore(cfg.Database, cfg.Regression)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := newRunner(cfg, runWorkers)
	if err != nil {
		return err
	}

	job := &channel.Job{
		Prices:   store,
		Channels: store,
		Runner:   runner,
		Symbols:  cfg.Runner.Symbols,
		DryRun:   runDryRun,
		OnStage:  health.setStage,
	}
	if len(runSymbols) > 0 {
		job.Symbols = runSymbols
	}
	if cfg.Publisher.Enabled && !runDryRun {
		publisher, closeRedis, err := newPublisher(cfg)
		if err != nil {
			// The regression table is still written; only the cache is skipped.
			log.Error("Redis unavailable, publishing disabled", logger.ErrorField(err))
		} else {
			defer closeRedis()
			job.Publisher = publisher
		}
	}

	table, err := job.Execute(ctx)
	if err != nil {
		return err
	}

	log.Info("Channel run complete", logger.Int("rows", table.Len()))
	return nil
}

func newPublisher(cfg *config.Config) (*channel.Publisher, func() error, error) {
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	publisherConfig := channel.DefaultPublisherConfig()
	publisherConfig.KeyPrefix = cfg.Publisher.KeyPrefix
	publisherConfig.TTL = cfg.Publisher.TTL
	publisherConfig.UpdateChannel = cfg.Publisher.UpdateChannel

	return channel.NewPublisher(redisClient, publisherConfig), redisClient.Close, nil
}
