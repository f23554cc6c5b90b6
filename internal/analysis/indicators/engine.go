// Package indicators computes the derived rolling series used by the pattern detectors.
package indicators

import (
	"fmt"

	"chartpattern-scanner/internal/models"
)

// Window lengths for the derived series.
const (
	ShortPeriod  = 50
	LongPeriod   = 200
	VolumePeriod = 50
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// Derived holds the per-bar derived series aligned with the input candles.
// Undefined positions are NaN.
type Derived struct {
	SMA50    []float64
	SMA200   []float64
	VolSMA50 []float64
}

// Snapshot is the derived state of a single bar.
type Snapshot struct {
	Index    int
	Close    float64
	Volume   float64
	SMA50    float64
	SMA200   float64
	VolSMA50 float64
}

// Engine computes the derived series from three indicators.
type Engine struct {
	short  Indicator
	long   Indicator
	volume Indicator
}

// NewEngine creates an engine. Every indicator must have a positive period.
func NewEngine(short, long, volume Indicator) (*Engine, error) {
	for _, ind := range []Indicator{short, long, volume} {
		if ind.Period() <= 0 {
			return nil, fmt.Errorf("%s: %w", ind.Name(), ErrInvalidPeriod)
		}
	}
	return &Engine{short: short, long: long, volume: volume}, nil
}

var defaultEngine = &Engine{
	short:  NewSMA(ShortPeriod),
	long:   NewSMA(LongPeriod),
	volume: NewVolumeSMA(VolumePeriod),
}

// Annotate computes SMA50, SMA200 and VolSMA50 for candles. The input slice is
// only read; the returned series are freshly allocated on every call.
func Annotate(candles []models.Candle) Derived {
	return defaultEngine.Annotate(candles)
}

// Annotate runs the engine's indicators over candles.
func (e *Engine) Annotate(candles []models.Candle) Derived {
	return Derived{
		SMA50:    calculate(e.short, candles),
		SMA200:   calculate(e.long, candles),
		VolSMA50: calculate(e.volume, candles),
	}
}

// calculate returns an all-NaN series when the indicator fails.
func calculate(ind Indicator, candles []models.Candle) []float64 {
	values, err := ind.Calculate(candles)
	if err != nil || len(values) != len(candles) {
		return undefinedSeries(len(candles))
	}
	return values
}

// At returns the snapshot of bar i.
func (d Derived) At(candles []models.Candle, i int) Snapshot {
	return Snapshot{
		Index:    i,
		Close:    candles[i].Close,
		Volume:   float64(candles[i].Volume),
		SMA50:    d.SMA50[i],
		SMA200:   d.SMA200[i],
		VolSMA50: d.VolSMA50[i],
	}
}

// Last returns the snapshot of the most recent bar.
func (d Derived) Last(candles []models.Candle) Snapshot {
	return d.At(candles, len(candles)-1)
}
