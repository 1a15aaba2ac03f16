// Package stats holds small numeric helpers shared by the simulation and
// duration packages.
package stats

import "math"

// Percentile returns the p quantile (0 <= p <= 1) of sorted data, linearly
// interpolating between the two closest ranks at h = (n-1)p. The median is
// Percentile(sorted, 0.5). It returns NaN for empty input.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	p = math.Max(0, math.Min(1, p))
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
