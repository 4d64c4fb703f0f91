package channel

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// columns is the output column order of the regression table
var columns = []string{
	"symbol", "max_regression_days", "date", "earliest_start_date", "best_regression_date",
	"start", "end", "length", "start_ordinal", "end_ordinal",
	"slope", "intercept", "r_value", "p_value", "stderr", "std",
	"line_start_ordinal_x", "line_end_ordinal_x", "line_start_x", "line_end_x",
	"line_start_y", "line_end_y", "line_plus_start_y", "line_plus_end_y",
	"line_minus_start_y", "line_minus_end_y",
}

// Table is the output of one batch run: one row per successful (symbol, date),
// sorted by symbol ascending then date descending.
type Table struct {
	RunID string
	Rows  []models.ChannelRow
}

// Columns returns the output column names in order
func Columns() []string {
	return append([]string(nil), columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Records renders every row as strings in Columns order.
// Rendering is deterministic so identical tables produce identical bytes.
func (t *Table) Records() [][]string {
	records := make([][]string, len(t.Rows))
	for i := range t.Rows {
		records[i] = FormatRow(&t.Rows[i])
	}
	return records
}

// FormatRow renders one row in Columns order
func FormatRow(r *models.ChannelRow) []string {
	return []string{
		r.Symbol,
		strconv.Itoa(r.MaxRegressionDays),
		formatDate(r.Date),
		formatDate(r.EarliestStartDate),
		formatDate(r.BestRegressionDate),
		formatDate(r.Start),
		formatDate(r.End),
		strconv.Itoa(r.Length),
		strconv.FormatInt(r.StartOrdinal, 10),
		strconv.FormatInt(r.EndOrdinal, 10),
		formatFloat(r.Slope),
		formatFloat(r.Intercept),
		formatFloat(r.RValue),
		formatFloat(r.PValue),
		formatFloat(r.StdErr),
		formatFloat(r.Std),
		strconv.FormatInt(r.LineStartOrdinalX, 10),
		strconv.FormatInt(r.LineEndOrdinalX, 10),
		formatDate(r.LineStartX),
		formatDate(r.LineEndX),
		formatFloat(r.LineStartY),
		formatFloat(r.LineEndY),
		formatFloat(r.LinePlusStartY),
		formatFloat(r.LinePlusEndY),
		formatFloat(r.LineMinusStartY),
		formatFloat(r.LineMinusEndY),
	}
}

// Latest returns the most recent row of every symbol, ordered by symbol
func (t *Table) Latest() []models.ChannelRow {
	latest := make(map[string]models.ChannelRow)
	for _, row := range t.Rows {
		if cur, ok := latest[row.Symbol]; !ok || row.Date.After(cur.Date) {
			latest[row.Symbol] = row
		}
	}

	rows := make([]models.ChannelRow, 0, len(latest))
	for _, row := range latest {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func sortRows(rows []models.ChannelRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Date.After(rows[j].Date)
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
