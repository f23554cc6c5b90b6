package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ValidateSeries checks that candles are strictly chronological and carry sane prices.
// It returns the index of the first offending candle with a description, or -1 and "".
func ValidateSeries(candles []Candle) (int, string) {
	for i, c := range candles {
		for _, p := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return i, "non-finite price"
			}
			if p <= 0 {
				return i, "non-positive price"
			}
		}
		if c.High < c.Low {
			return i, fmt.Sprintf("high %.4f below low %.4f", c.High, c.Low)
		}
		if c.Volume < 0 {
			return i, "negative volume"
		}
		if i > 0 && !c.Timestamp.After(candles[i-1].Timestamp) {
			return i, "timestamp not after previous bar"
		}
	}
	return -1, ""
}

// SortChronological orders candles oldest first in place.
func SortChronological(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
}

// Resample aggregates candles into buckets of the given interval.
// Each bucket keeps the first open, highest high, lowest low, last close and summed volume.
// Buckets are aligned to the interval boundary in UTC.
func Resample(candles []Candle, interval time.Duration) []Candle {
	if interval <= 0 || len(candles) == 0 {
		out := make([]Candle, len(candles))
		copy(out, candles)
		return out
	}

	var out []Candle
	var cur Candle
	var bucket time.Time
	open := false

	for _, c := range candles {
		b := c.Timestamp.UTC().Truncate(interval)
		if !open || !b.Equal(bucket) {
			if open {
				out = append(out, cur)
			}
			bucket = b
			cur = Candle{
				Timestamp: b,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			open = true
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	if open {
		out = append(out, cur)
	}
	return out
}
