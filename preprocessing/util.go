package preprocessing

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

func sqrt(v float64) float64 { return math.Sqrt(v) }

func minMax(values []float64) (float64, float64) {
	return floats.Min(values), floats.Max(values)
}

// nonMissing returns the finite values of a column.
func nonMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func countMissing(values []float64) int {
	return len(values) - len(nonMissing(values))
}

// median returns the median of values, which must be non-empty.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mostFrequent returns the most frequent value; ties go to the smallest,
// matching scikit-learn.
func mostFrequent(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mode, best := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > best {
			mode, best = sorted[i], j-i
		}
		i = j
	}
	return mode
}

// mostFrequentString returns the most frequent string; ties go to the
// lexicographically smallest.
func mostFrequentString(values []string) string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := "", -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

func itoa(i int) string { return strconv.Itoa(i) }
