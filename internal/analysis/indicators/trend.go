package indicators

import (
	"fmt"

	"chartpattern-scanner/internal/models"
)

// SMA calculates a Simple Moving Average of close prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

// Calculate returns the rolling mean aligned with candles. The first period-1
// values are NaN; a series shorter than the period is entirely NaN.
func (s *SMA) Calculate(candles []models.Candle) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return RollingMean(models.Closes(candles), s.period), nil
}

// RollingMean computes the trailing simple mean over period values.
// Positions without a full window are NaN. A non-positive period yields an all-NaN series.
func RollingMean(values []float64, period int) []float64 {
	result := undefinedSeries(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	// Each window is summed independently.
	for i := period - 1; i < len(values); i++ {
		result[i] = mean(values[i-period+1 : i+1])
	}
	return result
}
