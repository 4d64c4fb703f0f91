package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trend-channel/internal/config"
	"github.com/mohamedkhairy/trend-channel/internal/data"
)

func columnFlagsCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	defaults := data.DefaultColumnConfig()
	cmd := &cobra.Command{Use: "file"}
	cmd.Flags().String("symbol-column", defaults.SymbolColumn, "")
	cmd.Flags().String("date-column", defaults.DateColumn, "")
	cmd.Flags().String("price-column", defaults.PriceColumn, "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestFileColumns(t *testing.T) {
	cfg := &config.Config{Regression: config.RegressionConfig{
		DateColumn:  "trade_date",
		PriceColumn: "adj_close",
	}}

	tests := []struct {
		name string
		args []string
		want data.ColumnConfig
	}{
		{
			name: "config columns when flags unset",
			want: data.ColumnConfig{SymbolColumn: "symbol", DateColumn: "trade_date", PriceColumn: "adj_close"},
		},
		{
			name: "flags override config",
			args: []string{"--price-column", "close", "--symbol-column", "ticker"},
			want: data.ColumnConfig{SymbolColumn: "ticker", DateColumn: "trade_date", PriceColumn: "close"},
		},
		{
			name: "explicit default still wins",
			args: []string{"--date-column", "date"},
			want: data.ColumnConfig{SymbolColumn: "symbol", DateColumn: "date", PriceColumn: "adj_close"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := fileColumns(columnFlagsCommand(t, tt.args...), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cols)
		})
	}
}

func TestFileCommand_PriceColumnFromEnvironment(t *testing.T) {
	t.Setenv("REGRESSION_PRICE_COLUMN", "adj_close")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REGRESSION_CONFIG_FILE", "")

	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")

	var b strings.Builder
	b.WriteString("symbol,date,adj_close\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "ABC,%s,%g\n", start.AddDate(0, 0, i).Format("2006-01-02"), 100+0.5*float64(i))
	}
	require.NoError(t, os.WriteFile(input, []byte(b.String()), 0o600))

	rootCmd.SetArgs([]string{"file", "--input", input, "--output", output})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+6)
	assert.Equal(t, "ABC", records[1][0])
	assert.Equal(t, "2024-01-25", records[1][2])
}
