package regression

import (
	"testing"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

func TestBuildChannelLines_Center(t *testing.T) {
	result := &models.RegressionResult{
		Start:        epoch,
		End:          epoch.AddDate(0, 0, 29),
		StartOrdinal: 0,
		EndOrdinal:   29,
		Slope:        0.5,
		Intercept:    100,
	}

	lines := BuildChannelLines(result, 2, 2)

	assertClose(t, "line_start_y", 100, lines.LineStartY, 1e-12)
	assertClose(t, "line_end_y", 114.5, lines.LineEndY, 1e-12)
	if lines.LineStartOrdinalX != 0 || lines.LineEndOrdinalX != 29 {
		t.Errorf("Unexpected ordinal x: %d..%d", lines.LineStartOrdinalX, lines.LineEndOrdinalX)
	}
	if !lines.LineStartX.Equal(result.Start) || !lines.LineEndX.Equal(result.End) {
		t.Errorf("Unexpected x: %v..%v", lines.LineStartX, lines.LineEndX)
	}
	// Zero dispersion collapses the bands onto the center line
	if lines.LinePlusStartY != lines.LineStartY || lines.LineMinusEndY != lines.LineEndY {
		t.Errorf("Expected bands on the center line, got %+v", lines)
	}
}

func TestBuildChannelLines_AsymmetricPairing(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	result := &models.RegressionResult{
		Start:        start,
		End:          start.AddDate(0, 0, 10),
		StartOrdinal: models.DateOrdinal(start),
		EndOrdinal:   models.DateOrdinal(start) + 10,
		Slope:        -1,
		Intercept:    float64(models.DateOrdinal(start)) + 50,
		Std:          2,
	}

	lines := BuildChannelLines(result, 1, 3)

	assertClose(t, "line_start_y", 50, lines.LineStartY, 1e-9)
	assertClose(t, "line_end_y", 40, lines.LineEndY, 1e-9)

	// Window start uses the upper multiplier, window end the lower one, in both bands
	assertClose(t, "line_plus_start_y", 56, lines.LinePlusStartY, 1e-9)
	assertClose(t, "line_plus_end_y", 42, lines.LinePlusEndY, 1e-9)
	assertClose(t, "line_minus_start_y", 44, lines.LineMinusStartY, 1e-9)
	assertClose(t, "line_minus_end_y", 38, lines.LineMinusEndY, 1e-9)
}
