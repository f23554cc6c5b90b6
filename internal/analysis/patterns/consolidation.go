package patterns

import (
	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/indicators"
	"chartpattern-scanner/internal/analysis/scoring"
	"chartpattern-scanner/internal/analysis/trend"
	"chartpattern-scanner/internal/models"
)

const (
	FlagMinBars      = 40
	FlagPoleWindow   = 25
	FlagBaseLookback = 20
	MinPoleGain      = 0.12
	MaxFlagRetrace   = 0.50

	BaseMinBars  = 30
	BaseWindow   = 20
	MaxBaseWidth = 0.12
	BaseTarget   = 1.20
)

// BullFlagDetector finds a sharp advance (pole) followed by a shallow drift (flag).
// Levels.Bottom holds the pole base and Levels.RightRim the pole top.
type BullFlagDetector struct{}

// NewBullFlagDetector creates a new bull flag detector.
func NewBullFlagDetector() *BullFlagDetector {
	return &BullFlagDetector{}
}

func (d *BullFlagDetector) Kind() analysis.PatternKind {
	return analysis.BullFlag
}

func (d *BullFlagDetector) Detect(candles []models.Candle) analysis.Result {
	kind := d.Kind()
	n := len(candles)
	if n < FlagMinBars {
		return analysis.NoMatch(kind, analysis.ReasonInsufficientData, "not enough data (%d bars, need %d)", n, FlagMinBars)
	}

	highs := models.Highs(candles)
	lows := models.Lows(candles)

	topIdx := ArgMax(highs, n-FlagPoleWindow, n)
	top := highs[topIdx]

	scanBack := topIdx - FlagBaseLookback
	if scanBack < 0 {
		scanBack = 0
	}
	if topIdx <= scanBack {
		return analysis.NoMatch(kind, analysis.ReasonNoPoleBase, "no pole base")
	}
	baseIdx := ArgMin(lows, scanBack, topIdx)
	base := lows[baseIdx]

	gain := (top - base) / base
	if !(gain >= MinPoleGain) {
		return analysis.NoMatch(kind, analysis.ReasonWeakPole, "pole weak (%.1f%%)", gain*100)
	}

	flagLow := lows[ArgMin(lows, topIdx, n)]
	retrace := (top - flagLow) / (top - base)
	if !(retrace <= MaxFlagRetrace) {
		return analysis.NoMatch(kind, analysis.ReasonFlagTooDeep, "flag too deep (%.0f%% retracement)", retrace*100)
	}

	derived := indicators.Annotate(candles)
	volumeOK := trend.CheckVolumeBreakout(candles, derived)
	card := scoring.BullFlagModel.Score(scoring.BreakoutFactors{
		Close:          candles[n-1].Close,
		Pivot:          top,
		VolumeBreakout: volumeOK,
	})
	trendOK, _ := trend.CheckTrendTemplate(candles, derived)

	levels := analysis.NoLevels()
	levels.RightRim, levels.RightRimIndex = top, topIdx
	levels.Bottom, levels.BottomIndex = base, baseIdx

	return analysis.Matched(&analysis.Match{
		Kind:   kind,
		Status: card.Status,
		Score:  card.Score,
		Levels: levels,
		Plan: analysis.TradePlan{
			Pivot:    top,
			StopLoss: flagLow,
			Target:   top + (top - base),
		},
		Components:     card.Components,
		TrendTemplate:  trendOK,
		VolumeBreakout: volumeOK,
		BarIndex:       n - 1,
	})
}

// FlatBaseDetector finds a tight sideways range over the bars preceding the latest one,
// so the latest close can be measured against the range high.
// Levels.RightRim holds the range high and Levels.Bottom the range low.
type FlatBaseDetector struct{}

// NewFlatBaseDetector creates a new flat base detector.
func NewFlatBaseDetector() *FlatBaseDetector {
	return &FlatBaseDetector{}
}

func (d *FlatBaseDetector) Kind() analysis.PatternKind {
	return analysis.FlatBase
}

func (d *FlatBaseDetector) Detect(candles []models.Candle) analysis.Result {
	kind := d.Kind()
	n := len(candles)
	if n < BaseMinBars {
		return analysis.NoMatch(kind, analysis.ReasonInsufficientData, "not enough data (%d bars, need %d)", n, BaseMinBars)
	}

	highs := models.Highs(candles)
	lows := models.Lows(candles)

	hiIdx := ArgMax(highs, n-1-BaseWindow, n-1)
	loIdx := ArgMin(lows, n-1-BaseWindow, n-1)
	high, low := highs[hiIdx], lows[loIdx]

	width := (high - low) / low
	if !(width <= MaxBaseWidth) {
		return analysis.NoMatch(kind, analysis.ReasonBaseTooWide, "too wide (%.1f%%)", width*100)
	}

	derived := indicators.Annotate(candles)
	volumeOK := trend.CheckVolumeBreakout(candles, derived)
	card := scoring.FlatBaseModel.Score(scoring.BreakoutFactors{
		Close:          candles[n-1].Close,
		Pivot:          high,
		VolumeBreakout: volumeOK,
	})
	trendOK, _ := trend.CheckTrendTemplate(candles, derived)

	levels := analysis.NoLevels()
	levels.RightRim, levels.RightRimIndex = high, hiIdx
	levels.Bottom, levels.BottomIndex = low, loIdx

	return analysis.Matched(&analysis.Match{
		Kind:   kind,
		Status: card.Status,
		Score:  card.Score,
		Levels: levels,
		Plan: analysis.TradePlan{
			Pivot:    high,
			StopLoss: low,
			Target:   high * BaseTarget,
		},
		Components:     card.Components,
		TrendTemplate:  trendOK,
		VolumeBreakout: volumeOK,
		BarIndex:       n - 1,
	})
}
