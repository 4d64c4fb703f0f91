package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohamedkhairy/trend-channel/internal/channel"
	"github.com/mohamedkhairy/trend-channel/internal/config"
	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// rootCmd is the base command of the channels CLI
var rootCmd = &cobra.Command{
	Use:   "channels",
	Short: "Best-fit linear regression channels over daily closing prices",
	Long: `channels finds, for every symbol and every trading date, the trailing window
whose closing prices are most linearly correlated with time, fits a regression
line over it and emits the line with its standard-deviation bands.

Configuration is read from the environment (and .env). REGRESSION_CONFIG_FILE
may point to a YAML file overriding the regression section.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appConfig = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// appConfig is populated before any subcommand runs
var appConfig *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRunner builds the batch runner from the loaded configuration
func newRunner(cfg *config.Config, workers int) (*channel.Runner, error) {
	runnerConfig := channel.RunnerConfig{
		Regression:  cfg.Regression.ToRegression(),
		WorkerCount: cfg.Runner.WorkerCount,
	}
	if workers > 0 {
		runnerConfig.WorkerCount = workers
	}

	runner, err := channel.NewRunner(runnerConfig)
	if err != nil {
		return nil, err
	}
	runner.SetOnDropped(func(res models.BestResults) {
		logger.Debug("Dropped evaluation",
			logger.String("symbol", res.Symbol),
			logger.Time("date", res.Date),
			logger.ErrorField(res.Err),
		)
	})
	return runner, nil
}
