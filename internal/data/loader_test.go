package data

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const pricesCSV = `symbol,date,close
ABC,2024-01-02,10.5
ABC,2024-01-03,11
XYZ,2024-01-02,not-a-number
XYZ,2024-01-03,20
`

func TestLoadPricesCSV(t *testing.T) {
	bars, err := LoadPricesCSV(strings.NewReader(pricesCSV), DefaultColumnConfig())
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "ABC", bars[0].Symbol)
	assert.True(t, bars[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, "XYZ", bars[2].Symbol)
}

func TestLoadPricesCSV_CustomColumns(t *testing.T) {
	input := "Ticker,TradeDate,AdjClose\nabc,2024-01-02,3\n"
	cols := ColumnConfig{SymbolColumn: "ticker", DateColumn: "tradedate", PriceColumn: "adjclose"}

	bars, err := LoadPricesCSV(strings.NewReader(input), cols)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "ABC", bars[0].Symbol)

	_, err = LoadPricesCSV(strings.NewReader(input), DefaultColumnConfig())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadPricesCSV_Empty(t *testing.T) {
	bars, err := LoadPricesCSV(strings.NewReader(""), DefaultColumnConfig())
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestLoadPricesXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"symbol", "date", "close"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"abc", "2024-01-02", 10.25}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"abc", "2024-01-03", 10.75}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"", "2024-01-04", 11}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	bars, err := LoadPricesXLSX(bytes.NewReader(buf.Bytes()), "", DefaultColumnConfig())
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "ABC", bars[1].Symbol)
	assert.True(t, bars[1].Date.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10.75, bars[1].Close)

	_, err = LoadPricesXLSX(bytes.NewReader(buf.Bytes()), "Missing", DefaultColumnConfig())
	assert.Error(t, err)
}

func TestLoadPricesFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "prices.CSV")
	require.NoError(t, os.WriteFile(path, []byte(pricesCSV), 0o600))
	bars, err := LoadPricesFile(path, DefaultColumnConfig())
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	other := filepath.Join(dir, "prices.json")
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0o600))
	_, err = LoadPricesFile(other, DefaultColumnConfig())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadPricesFile(filepath.Join(dir, "missing.csv"), DefaultColumnConfig())
	assert.Error(t, err)
}
