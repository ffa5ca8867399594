package stabilizer

import (
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the sample standard deviation; zero for fewer than two values
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

// trimmedMean drops the lowest and highest quartile (at least one value
// from each end) before averaging. Samples too small to trim fall back
// to the plain mean.
func trimmedMean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	trim := n / 4
	if trim < 1 {
		trim = 1
	}
	if n <= trim*2 {
		return mean(sorted)
	}
	return mean(sorted[trim : n-trim])
}

// coefficientOfVariation relates spread to scale; zero when the mean is
// not positive.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m <= 0 {
		return 0
	}
	return stddev(values) / m
}

// reduce collapses a sample into one value using the configured method
func reduce(values []float64, method string) float64 {
	switch method {
	case MethodMedian:
		return median(values)
	case MethodTrimmedMean:
		return trimmedMean(values)
	default:
		return mean(values)
	}
}
