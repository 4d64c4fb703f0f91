package models

import (
	"math"
	"time"
)

// DateLayout is the calendar date layout used wherever a date is rendered as text
const DateLayout = "2006-01-02"

// PriceBar represents one daily closing price row of the input table
type PriceBar struct {
	Symbol string    `json:"symbol" db:"symbol"`
	Date   time.Time `json:"date" db:"date"`
	Close  float64   `json:"close" db:"close"`
}

// Validate validates a PriceBar
func (b *PriceBar) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Date.IsZero() {
		return ErrInvalidTimestamp
	}
	if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// PricePoint is a single point of a symbol's ordered series.
// Ordinal is the day number of Date counted from the Unix epoch.
type PricePoint struct {
	Date    time.Time `json:"date"`
	Ordinal int64     `json:"ordinal"`
	Close   float64   `json:"close"`
}

// NewPricePoint truncates date to a calendar day and derives its ordinal
func NewPricePoint(date time.Time, close float64) PricePoint {
	day := TruncateDay(date)
	return PricePoint{
		Date:    day,
		Ordinal: DateOrdinal(day),
		Close:   close,
	}
}

// TruncateDay drops the time of day, keeping the calendar date in UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOrdinal returns the number of days between the Unix epoch and date
func DateOrdinal(date time.Time) int64 {
	return TruncateDay(date).Unix() / 86400
}

// OrdinalDate is the inverse of DateOrdinal
func OrdinalDate(ordinal int64) time.Time {
	return time.Unix(ordinal*86400, 0).UTC()
}

// BestCorrelation is the winning window start chosen by the correlation scan
type BestCorrelation struct {
	Date time.Time `json:"date"`
	Corr float64   `json:"corr"`
}

// RegressionResult holds an OLS fit of close on ordinal day number.
// Float fields are NaN when the statistic could not be computed.
type RegressionResult struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Length       int       `json:"length"` // calendar days, inclusive
	StartOrdinal int64     `json:"start_ordinal"`
	EndOrdinal   int64     `json:"end_ordinal"`
	Slope        float64   `json:"slope"`
	Intercept    float64   `json:"intercept"`
	RValue       float64   `json:"r_value"`
	PValue       float64   `json:"p_value"`
	StdErr       float64   `json:"stderr"`
	Std          float64   `json:"std"`
}

// RegressionLines describes the channel: center line plus the deviation bands
type RegressionLines struct {
	LineStartOrdinalX int64     `json:"line_start_ordinal_x"`
	LineEndOrdinalX   int64     `json:"line_end_ordinal_x"`
	LineStartX        time.Time `json:"line_start_x"`
	LineEndX          time.Time `json:"line_end_x"`
	LineStartY        float64   `json:"line_start_y"`
	LineEndY          float64   `json:"line_end_y"`
	LinePlusStartY    float64   `json:"line_plus_start_y"`
	LinePlusEndY      float64   `json:"line_plus_end_y"`
	LineMinusStartY   float64   `json:"line_minus_start_y"`
	LineMinusEndY     float64   `json:"line_minus_end_y"`
}

// BestResults is the outcome of one (symbol, evaluation date) evaluation.
// BestRegressionDate, BestResult and BestLines are either all set or all nil.
type BestResults struct {
	Symbol             string            `json:"symbol"`
	MaxRegressionDays  int               `json:"max_regression_days"`
	Date               time.Time         `json:"date"`
	EarliestStartDate  time.Time         `json:"earliest_start_date"`
	BestRegressionDate *time.Time        `json:"best_regression_date,omitempty"`
	BestResult         *RegressionResult `json:"best_result,omitempty"`
	BestLines          *RegressionLines  `json:"best_lines,omitempty"`

	// Err is the reason the evaluation failed; never persisted
	Err error `json:"-"`
}

// Succeeded returns true if the success fields are present
func (r *BestResults) Succeeded() bool {
	return r.BestRegressionDate != nil && r.BestResult != nil && r.BestLines != nil
}

// ChannelRow is one flattened row of the output table
type ChannelRow struct {
	RunID              string    `json:"run_id,omitempty" db:"run_id"`
	Symbol             string    `json:"symbol" db:"symbol"`
	MaxRegressionDays  int       `json:"max_regression_days" db:"max_regression_days"`
	Date               time.Time `json:"date" db:"date"`
	EarliestStartDate  time.Time `json:"earliest_start_date" db:"earliest_start_date"`
	BestRegressionDate time.Time `json:"best_regression_date" db:"best_regression_date"`
	Start              time.Time `json:"start" db:"start"`
	End                time.Time `json:"end" db:"end"`
	Length             int       `json:"length" db:"length"`
	StartOrdinal       int64     `json:"start_ordinal" db:"start_ordinal"`
	EndOrdinal         int64     `json:"end_ordinal" db:"end_ordinal"`
	Slope              float64   `json:"slope" db:"slope"`
	Intercept          float64   `json:"intercept" db:"intercept"`
	RValue             float64   `json:"r_value" db:"r_value"`
	PValue             float64   `json:"p_value" db:"p_value"`
	StdErr             float64   `json:"stderr" db:"stderr"`
	Std                float64   `json:"std" db:"std"`
	LineStartOrdinalX  int64     `json:"line_start_ordinal_x" db:"line_start_ordinal_x"`
	LineEndOrdinalX    int64     `json:"line_end_ordinal_x" db:"line_end_ordinal_x"`
	LineStartX         time.Time `json:"line_start_x" db:"line_start_x"`
	LineEndX           time.Time `json:"line_end_x" db:"line_end_x"`
	LineStartY         float64   `json:"line_start_y" db:"line_start_y"`
	LineEndY           float64   `json:"line_end_y" db:"line_end_y"`
	LinePlusStartY     float64   `json:"line_plus_start_y" db:"line_plus_start_y"`
	LinePlusEndY       float64   `json:"line_plus_end_y" db:"line_plus_end_y"`
	LineMinusStartY    float64   `json:"line_minus_start_y" db:"line_minus_start_y"`
	LineMinusEndY      float64   `json:"line_minus_end_y" db:"line_minus_end_y"`
}

// NewChannelRow flattens a successful BestResults into a ChannelRow.
// Returns false if the evaluation failed.
func NewChannelRow(r *BestResults) (ChannelRow, bool) {
	if r == nil || !r.Succeeded() {
		return ChannelRow{}, false
	}
	res, lines := r.BestResult, r.BestLines
	return ChannelRow{
		Symbol:             r.Symbol,
		MaxRegressionDays:  r.MaxRegressionDays,
		Date:               r.Date,
		EarliestStartDate:  r.EarliestStartDate,
		BestRegressionDate: *r.BestRegressionDate,
		Start:              res.Start,
		End:                res.End,
		Length:             res.Length,
		StartOrdinal:       res.StartOrdinal,
		EndOrdinal:         res.EndOrdinal,
		Slope:              res.Slope,
		Intercept:          res.Intercept,
		RValue:             res.RValue,
		PValue:             res.PValue,
		StdErr:             res.StdErr,
		Std:                res.Std,
		LineStartOrdinalX:  lines.LineStartOrdinalX,
		LineEndOrdinalX:    lines.LineEndOrdinalX,
		LineStartX:         lines.LineStartX,
		LineEndX:           lines.LineEndX,
		LineStartY:         lines.LineStartY,
		LineEndY:           lines.LineEndY,
		LinePlusStartY:     lines.LinePlusStartY,
		LinePlusEndY:       lines.LinePlusEndY,
		LineMinusStartY:    lines.LineMinusStartY,
		LineMinusEndY:      lines.LineMinusEndY,
	}, true
}
