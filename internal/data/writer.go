package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mohamedkhairy/trend-channel/internal/channel"
	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// ChannelSheet is the worksheet name used for xlsx output
const ChannelSheet = "channels"

// WriteChannelsFile writes the table to a .csv or .xlsx file
func WriteChannelsFile(path string, table *channel.Table) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if ext == ".csv" {
		err = WriteChannelsCSV(f, table)
	} else {
		err = WriteChannelsXLSX(f, table)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	return err
}

// WriteChannelsCSV writes a header plus one line per row
func WriteChannelsCSV(w io.Writer, table *channel.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(channel.Columns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := writer.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// WriteChannelsXLSX writes the table to a single-sheet workbook.
// Numeric columns are stored as numbers, dates as ISO strings.
func WriteChannelsXLSX(w io.Writer, table *channel.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ChannelSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ChannelSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, 0, len(channel.Columns()))
	for _, c := range channel.Columns() {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(&table.Rows[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxRow(r *models.ChannelRow) []interface{} {
	record := channel.FormatRow(r)
	return []interface{}{
		record[0],
		r.MaxRegressionDays,
		record[2],
		record[3],
		record[4],
		record[5],
		record[6],
		r.Length,
		r.StartOrdinal,
		r.EndOrdinal,
		number(r.Slope),
		number(r.Intercept),
		number(r.RValue),
		number(r.PValue),
		number(r.StdErr),
		number(r.Std),
		r.LineStartOrdinalX,
		r.LineEndOrdinalX,
		record[18],
		record[19],
		number(r.LineStartY),
		number(r.LineEndY),
		number(r.LinePlusStartY),
		number(r.LinePlusEndY),
		number(r.LineMinusStartY),
		number(r.LineMinusEndY),
	}
}

// number leaves NaN and infinite values as empty cells
func number(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
