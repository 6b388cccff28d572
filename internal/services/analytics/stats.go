package analytics

import (
	"math"
	"sort"

	"TradeLens/internal/domain/models"
)

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeMedian uses linear interpolation on a pre-sorted ascending slice.
func computeMedian(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computeMaxDrawdown calculates worst peak-to-trough decline on the
// cumulative sum of values in chronological order.
func computeMaxDrawdown(values []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, v := range values {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// netPnls extracts the net pnl sequence in the pairs' given order.
func netPnls(pairs []models.PairedTrade) []float64 {
	out := make([]float64, len(pairs))
	for i := range pairs {
		out[i] = pairs[i].NetPnl
	}
	return out
}

// sortByExit returns a copy ordered chronologically by exit timestamp, with
// execution ids as tie-break.
func sortByExit(pairs []models.PairedTrade) []models.PairedTrade {
	ordered := make([]models.PairedTrade, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ExitTimestamp.Equal(ordered[j].ExitTimestamp) {
			return ordered[i].ExitExecutionID < ordered[j].ExitExecutionID
		}
		return ordered[i].ExitTimestamp.Before(ordered[j].ExitTimestamp)
	})
	return ordered
}

// ratioOrZero guards division by zero to 0 so no NaN leaks to callers.
func ratioOrZero(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// clamp01 clamps to the unit interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
