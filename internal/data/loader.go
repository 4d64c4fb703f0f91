package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mohamedkhairy/trend-channel/internal/models"
	"github.com/mohamedkhairy/trend-channel/pkg/logger"
)

// LoadPricesFile loads a price table from a .csv or .xlsx file
func LoadPricesFile(path string, cols ColumnConfig) ([]models.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadPricesCSV(f, cols)
	case ".xlsx":
		return LoadPricesXLSX(f, "", cols)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadPricesCSV reads a price table with a header row from r
func LoadPricesCSV(r io.Reader, cols ColumnConfig) ([]models.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	normalizer, err := NewRowNormalizer(header, cols)
	if err != nil {
		return nil, err
	}

	var bars []models.PriceBar
	skipped := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		bar, err := normalizer.Normalize(record)
		if err != nil {
			skipped++
			logger.Debug("Skipping price row", logger.Int("line", line), logger.ErrorField(err))
			continue
		}
		bars = append(bars, bar)
	}

	logLoaded("csv", len(bars), skipped)
	return bars, nil
}

// LoadPricesXLSX reads a price table from a workbook. An empty sheet name
// selects the first sheet.
func LoadPricesXLSX(r io.Reader, sheet string, cols ColumnConfig) ([]models.PriceBar, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	normalizer, err := NewRowNormalizer(rows[0], cols)
	if err != nil {
		return nil, err
	}

	bars := make([]models.PriceBar, 0, len(rows)-1)
	skipped := 0
	for i, record := range rows[1:] {
		bar, err := normalizer.Normalize(record)
		if err != nil {
			skipped++
			logger.Debug("Skipping price row", logger.Int("row", i+2), logger.ErrorField(err))
			continue
		}
		bars = append(bars, bar)
	}

	logLoaded("xlsx", len(bars), skipped)
	return bars, nil
}

func logLoaded(format string, loaded, skipped int) {
	if skipped > 0 {
		logger.Warn("Skipped unparseable price rows",
			logger.String("format", format),
			logger.Int("skipped", skipped),
		)
	}
	logger.Info("Loaded price table",
		logger.String("format", format),
		logger.Int("rows", loaded),
	)
}
