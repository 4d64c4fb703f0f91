package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohamedkhairy/trend-channel/internal/config"
	"github.com/mohamedkhairy/trend-channel/internal/data"
	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// fileCmd computes channels from a csv or xlsx price table
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Compute channels from a csv or xlsx price table",
	Long: `Read a price table with symbol, date and close columns, evaluate every
(symbol, date) and write the regression table. The format of both files
follows the extension (.csv or .xlsx).

Examples:
  channels file --input prices.csv --output channels.csv
  channels file --input prices.xlsx --sheet Daily --output channels.xlsx
  channels file --input prices.csv --price-column adj_close --output out.csv`,
	RunE: runFile,
}

var (
	fileInput   string
	fileOutput  string
	fileSheet   string
	fileWorkers int
)

func init() {
	rootCmd.AddCommand(fileCmd)

	defaults := data.DefaultColumnConfig()
	fileCmd.Flags().StringVar(&fileInput, "input", "", "Price table (.csv or .xlsx)")
	fileCmd.Flags().StringVar(&fileOutput, "output", "", "Regression table (.csv or .xlsx)")
	fileCmd.Flags().StringVar(&fileSheet, "sheet", "", "Worksheet of an xlsx input (default: first sheet)")
	fileCmd.Flags().String("symbol-column", defaults.SymbolColumn, "Symbol column name")
	fileCmd.Flags().String("date-column", defaults.DateColumn, "Date column name (default: REGRESSION_DATE_COLUMN)")
	fileCmd.Flags().String("price-column", defaults.PriceColumn, "Closing price column name (default: REGRESSION_PRICE_COLUMN)")
	fileCmd.Flags().IntVar(&fileWorkers, "workers", 0, "Worker count (default: RUNNER_WORKER_COUNT)")

	fileCmd.MarkFlagRequired("input")
	fileCmd.MarkFlagRequired("output")
}

func runFile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cols, err := fileColumns(cmd, appConfig)
	if err != nil {
		return err
	}

	bars, err := loadBars(fileInput, fileSheet, cols)
	if err != nil {
		return err
	}

	runner, err := newRunner(appConfig, fileWorkers)
	if err != nil {
		return err
	}
	table, err := runner.Run(ctx, bars)
	if err != nil {
		return fmt.Errorf("channel run interrupted: %w", err)
	}

	if err := data.WriteChannelsFile(fileOutput, table); err != nil {
		return err
	}
	logger.Info("Wrote regression table",
		logger.String("path", fileOutput),
		logger.Int("rows", table.Len()),
		logger.String("run_id", table.RunID),
	)
	return nil
}

// fileColumns resolves the input column names. Date and price columns fall
// back to the regression config unless set on the command line.
func fileColumns(cmd *cobra.Command, cfg *config.Config) (data.ColumnConfig, error) {
	flags := cmd.Flags()
	symbol, err := flags.GetString("symbol-column")
	if err != nil {
		return data.ColumnConfig{}, err
	}
	date, err := flags.GetString("date-column")
	if err != nil {
		return data.ColumnConfig{}, err
	}
	price, err := flags.GetString("price-column")
	if err != nil {
		return data.ColumnConfig{}, err
	}

	if !flags.Changed("date-column") && cfg.Regression.DateColumn != "" {
		date = cfg.Regression.DateColumn
	}
	if !flags.Changed("price-column") && cfg.Regression.PriceColumn != "" {
		price = cfg.Regression.PriceColumn
	}
	return data.ColumnConfig{SymbolColumn: symbol, DateColumn: date, PriceColumn: price}, nil
}

func loadBars(path, sheet string, cols data.ColumnConfig) ([]models.PriceBar, error) {
	if sheet == "" || !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return data.LoadPricesFile(path, cols)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return data.LoadPricesXLSX(f, sheet, cols)
}
