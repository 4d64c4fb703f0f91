package data

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalidRow is returned when a row cannot be parsed
	ErrInvalidRow = errors.New("invalid row")
	// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// dateLayouts are tried in order when parsing a date cell
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
}

// ColumnConfig names the input columns
type ColumnConfig struct {
	SymbolColumn string // default: "symbol"
	DateColumn   string // default: "date"
	PriceColumn  string // default: "close"
}

// DefaultColumnConfig returns default configuration
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		SymbolColumn: "symbol",
		DateColumn:   "date",
		PriceColumn:  "close",
	}
}

// RowNormalizer converts raw table records into PriceBars
type RowNormalizer struct {
	symbolIdx int
	dateIdx   int
	priceIdx  int
}

// NewRowNormalizer locates the configured columns in header (case-insensitive)
func NewRowNormalizer(header []string, cols ColumnConfig) (*RowNormalizer, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		return i, nil
	}

	n := &RowNormalizer{}
	var err error
	if n.symbolIdx, err = lookup(cols.SymbolColumn); err != nil {
		return nil, err
	}
	if n.dateIdx, err = lookup(cols.DateColumn); err != nil {
		return nil, err
	}
	if n.priceIdx, err = lookup(cols.PriceColumn); err != nil {
		return nil, err
	}
	return n, nil
}

// Normalize converts one record to a PriceBar
func (n *RowNormalizer) Normalize(record []string) (models.PriceBar, error) {
	cell := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	symbol := strings.ToUpper(cell(n.symbolIdx))
	if symbol == "" {
		return models.PriceBar{}, fmt.Errorf("%w: missing symbol", ErrInvalidRow)
	}

	date, err := parseDate(cell(n.dateIdx))
	if err != nil {
		return models.PriceBar{}, fmt.Errorf("%w: %s: %v", ErrInvalidRow, symbol, err)
	}

	raw := strings.ReplaceAll(cell(n.priceIdx), ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.PriceBar{}, fmt.Errorf("%w: %s %s: invalid price %q",
			ErrInvalidRow, symbol, date.Format(models.DateLayout), raw)
	}

	bar := models.PriceBar{Symbol: symbol, Date: date, Close: price}
	if err := bar.Validate(); err != nil {
		return models.PriceBar{}, fmt.Errorf("%w: %s %s: %v",
			ErrInvalidRow, symbol, date.Format(models.DateLayout), err)
	}
	return bar, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
