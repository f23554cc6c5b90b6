package indicators

import (
	"errors"
	"math"
)

var (
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Defined reports whether an indicator value is populated.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// undefinedSeries returns a series of n NaN values.
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
