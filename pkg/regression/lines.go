package regression

import "github.com/mohamedkhairy/trend-channel/internal/models"

// BuildChannelLines derives the channel endpoints from a fitted regression.
//
// The bands pair upperDeviation with the window start and lowerDeviation
// with the window end, for both the plus and the minus band. Downstream
// features depend on these exact values, so the pairing must not be
// "corrected" to a per-band multiplier.
func BuildChannelLines(result *models.RegressionResult, lowerDeviation, upperDeviation float64) models.RegressionLines {
	startY := result.Intercept + float64(result.StartOrdinal)*result.Slope
	endY := startY + result.Slope*float64(result.EndOrdinal-result.StartOrdinal)

	startBand := result.Std * upperDeviation
	endBand := result.Std * lowerDeviation

	return models.RegressionLines{
		LineStartOrdinalX: result.StartOrdinal,
		LineEndOrdinalX:   result.EndOrdinal,
		LineStartX:        result.Start,
		LineEndX:          result.End,
		LineStartY:        startY,
		LineEndY:          endY,
		LinePlusStartY:    startY + startBand,
		LinePlusEndY:      endY + endBand,
		LineMinusStartY:   startY - startBand,
		LineMinusEndY:     endY - endBand,
	}
}
