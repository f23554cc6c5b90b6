// Package models provides domain models for the pattern scanner.
package models

import (
	"time"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Closes extracts close prices from candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts high prices from candles.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts low prices from candles.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts volumes from candles as float64 so they can feed rolling means.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = float64(c.Volume)
	}
	return out
}

// Last returns the most recent candle. The caller must ensure candles is non-empty.
func Last(candles []Candle) Candle {
	return candles[len(candles)-1]
}
