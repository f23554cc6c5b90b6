// Package trend provides the macro-trend and volume-expansion gates consumed by the detectors.
package trend

import (
	"fmt"

	"chartpattern-scanner/internal/analysis/indicators"
	"chartpattern-scanner/internal/models"
)

const (
	// MinTemplateBars is the history needed for the trend template.
	MinTemplateBars = 200
	// BreakoutVolumeMultiple is the volume expansion over VolSMA50 that counts as a breakout.
	BreakoutVolumeMultiple = 1.40
)

// CheckTrendTemplate passes iff close > SMA50 > SMA200 on the latest bar.
func CheckTrendTemplate(candles []models.Candle, d indicators.Derived) (bool, string) {
	if len(candles) < MinTemplateBars {
		return false, fmt.Sprintf("not enough data (%d bars, need %d)", len(candles), MinTemplateBars)
	}

	last := d.Last(candles)
	if !indicators.Defined(last.SMA50) || !indicators.Defined(last.SMA200) {
		return false, "moving averages undefined"
	}
	if !(last.Close > last.SMA50) {
		return false, fmt.Sprintf("close %.2f not above SMA50 %.2f", last.Close, last.SMA50)
	}
	if !(last.SMA50 > last.SMA200) {
		return false, fmt.Sprintf("SMA50 %.2f not above SMA200 %.2f", last.SMA50, last.SMA200)
	}
	return true, "trend OK"
}

// CheckVolumeBreakout passes iff the latest bar's volume exceeds 1.40x VolSMA50.
// An undefined average fails the check.
func CheckVolumeBreakout(candles []models.Candle, d indicators.Derived) bool {
	if len(candles) == 0 {
		return false
	}
	last := d.Last(candles)
	if !indicators.Defined(last.VolSMA50) {
		return false
	}
	return last.Volume > last.VolSMA50*BreakoutVolumeMultiple
}
