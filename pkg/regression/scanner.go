package regression

import (
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/trend-channel/internal/models"
)

// TieTolerance is the score margin under which two windows count as tied.
// Ties go to the earlier offset, i.e. the longer window.
const TieTolerance = 1e-12

// suffixSums holds sufficient statistics of every suffix [i, n)
type suffixSums struct {
	sx, sy, sxx, syy, sxy []float64
}

// newSuffixSums builds the suffix sums in a single reverse pass.
// Values are shifted by the last point so sums stay small and a suffix that
// is flat in y sums to exactly zero.
func newSuffixSums(x, y []float64) suffixSums {
	n := len(x)
	s := suffixSums{
		sx:  make([]float64, n+1),
		sy:  make([]float64, n+1),
		sxx: make([]float64, n+1),
		syy: make([]float64, n+1),
		sxy: make([]float64, n+1),
	}
	if n == 0 {
		return s
	}

	x0, y0 := x[n-1], y[n-1]
	for i := n - 1; i >= 0; i-- {
		dx, dy := x[i]-x0, y[i]-y0
		s.sx[i] = s.sx[i+1] + dx
		s.sy[i] = s.sy[i+1] + dy
		s.sxx[i] = s.sxx[i+1] + dx*dx
		s.syy[i] = s.syy[i+1] + dy*dy
		s.sxy[i] = s.sxy[i+1] + dx*dy
	}
	return s
}

// correlation returns the Pearson r of suffix [i, n), NaN if either variance vanishes
func (s suffixSums) correlation(i, n int) float64 {
	count := float64(n - i)
	num := s.sxy[i] - s.sx[i]*s.sy[i]/count
	varX := s.sxx[i] - s.sx[i]*s.sx[i]/count
	varY := s.syy[i] - s.sy[i]*s.sy[i]/count
	if varX <= 0 || varY <= 0 {
		return math.NaN()
	}

	r := num / math.Sqrt(varX*varY)
	return math.Max(-1, math.Min(1, r))
}

// CandidateCount returns how many start offsets a window of n points offers.
// Offsets run over [0, n-minDays] inclusive, so the shortest candidate has
// exactly minDays points. This is one offset more than an exclusive upper
// bound would give, which would require minDays+1 points per candidate.
func CandidateCount(n, minDays int) int {
	if n < minDays {
		return 0
	}
	return n - minDays + 1
}

// SuffixCorrelations returns the Pearson r of x[i:], y[i:] for every
// candidate offset i, in ascending order of i. Every suffix has at least
// minDays points. Undefined correlations are NaN.
func SuffixCorrelations(x, y []float64, minDays int) []float64 {
	n := len(x)
	candidates := CandidateCount(n, minDays)
	corrs := make([]float64, candidates)
	if candidates == 0 {
		return corrs
	}

	sums := newSuffixSums(x, y)
	for i := 0; i < candidates; i++ {
		corrs[i] = sums.correlation(i, n)
	}
	return corrs
}

// BestOffset picks the offset with the highest score among defined
// correlations, scanning ascending so ties keep the earliest offset.
// Returns -1 if every correlation is NaN.
func BestOffset(corrs []float64, useAbs bool) int {
	best := -1
	bestScore := math.Inf(-1)
	for i, r := range corrs {
		if math.IsNaN(r) {
			continue
		}
		score := r
		if useAbs {
			score = math.Abs(r)
		}
		if best < 0 || score > bestScore+TieTolerance {
			best = i
			bestScore = score
		}
	}
	return best
}

// ScanBestCorrelation finds the start of the most linear suffix window.
// x, y and dates are parallel and sorted by date ascending.
func ScanBestCorrelation(x, y []float64, dates []time.Time, minDays int, useAbs bool) (models.BestCorrelation, error) {
	if len(x) != len(y) || len(x) != len(dates) {
		return models.BestCorrelation{}, fmt.Errorf("mismatched input lengths: x=%d y=%d dates=%d",
			len(x), len(y), len(dates))
	}
	if CandidateCount(len(x), minDays) == 0 {
		return models.BestCorrelation{}, fmt.Errorf("%w: %d points, need %d",
			models.ErrInsufficientData, len(x), minDays)
	}

	corrs := SuffixCorrelations(x, y, minDays)
	best := BestOffset(corrs, useAbs)
	if best < 0 {
		return models.BestCorrelation{}, fmt.Errorf("%w: all %d candidate windows are flat",
			models.ErrNoValidWindow, len(corrs))
	}

	return models.BestCorrelation{
		Date: dates[best],
		Corr: corrs[best],
	}, nil
}
