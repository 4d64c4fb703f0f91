package regression

import (
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// ChannelOutput selects which channel value a ChannelIndicator reports
type ChannelOutput int

const (
	ChannelCenter   ChannelOutput = iota // center line at the evaluated candle
	ChannelUpper                         // plus band at the evaluated candle
	ChannelLower                         // minus band at the evaluated candle
	ChannelSlope                         // slope per calendar day
	ChannelPosition                      // (close - lower) / (upper - lower)
)

// String returns the indicator name suffix for the output
func (o ChannelOutput) String() string {
	switch o {
	case ChannelCenter:
		return "center"
	case ChannelUpper:
		return "upper"
	case ChannelLower:
		return "lower"
	case ChannelSlope:
		return "slope"
	case ChannelPosition:
		return "position"
	default:
		return "unknown"
	}
}

// ChannelIndicator exposes the best-fit channel as a techan.Indicator so it
// can be combined with techan's own indicators (moving averages of the
// channel position, crosses against the bands, ...).
//
// Candles are treated as daily bars keyed by Period.Start. Calculate returns
// big.ZERO whenever the best fit fails at that index. Not safe for
// concurrent use.
type ChannelIndicator struct {
	series *techan.TimeSeries
	config Config
	output ChannelOutput
	points []models.PricePoint
}

// NewChannelIndicator creates a channel indicator over series
func NewChannelIndicator(series *techan.TimeSeries, config Config, output ChannelOutput) *ChannelIndicator {
	return &ChannelIndicator{
		series: series,
		config: config,
		output: output,
	}
}

// Calculate implements techan.Indicator
func (c *ChannelIndicator) Calculate(index int) big.Decimal {
	if index < 0 || index >= len(c.series.Candles) {
		return big.ZERO
	}
	c.syncPoints()

	points := c.points[:index+1]
	res := BestFit("", points, points[index].Date, c.config)
	if !res.Succeeded() {
		return big.ZERO
	}

	lines := res.BestLines
	switch c.output {
	case ChannelCenter:
		return big.NewDecimal(lines.LineEndY)
	case ChannelUpper:
		return big.NewDecimal(lines.LinePlusEndY)
	case ChannelLower:
		return big.NewDecimal(lines.LineMinusEndY)
	case ChannelSlope:
		return big.NewDecimal(res.BestResult.Slope)
	case ChannelPosition:
		width := lines.LinePlusEndY - lines.LineMinusEndY
		if width <= 0 {
			return big.ZERO
		}
		return big.NewDecimal((points[index].Close - lines.LineMinusEndY) / width)
	default:
		return big.ZERO
	}
}

// syncPoints converts candles appended since the last call
func (c *ChannelIndicator) syncPoints() {
	for i := len(c.points); i < len(c.series.Candles); i++ {
		candle := c.series.Candles[i]
		c.points = append(c.points, models.NewPricePoint(candle.Period.Start, candle.ClosePrice.Float()))
	}
}

var _ techan.Indicator = (*ChannelIndicator)(nil)
