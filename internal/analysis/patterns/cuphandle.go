// Package patterns provides the chart pattern detectors and the analyzer that runs them.
package patterns

import (
	"math"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/indicators"
	"chartpattern-scanner/internal/analysis/scoring"
	"chartpattern-scanner/internal/analysis/trend"
	"chartpattern-scanner/internal/models"
)

// Cup & handle geometry limits.
const (
	CupMinBars       = 60
	RightRimLookback = 60
	MaxHandleBars    = 45
	MinCupWidth      = 8
	LeftRimLookback  = 250
	MinLeftRimSearch = 20
	MinCupBars       = 5

	MinRimRatio = 0.75
	MaxRimRatio = 1.35
	MinCupDepth = 0.08
	MaxCupDepth = 0.60
)

// CupAndHandleDetector segments a series into left rim, cup, right rim and handle.
type CupAndHandleDetector struct{}

// NewCupAndHandleDetector creates a new cup & handle detector.
func NewCupAndHandleDetector() *CupAndHandleDetector {
	return &CupAndHandleDetector{}
}

func (d *CupAndHandleDetector) Kind() analysis.PatternKind {
	return analysis.CupAndHandle
}

// Detect runs the geometric gates in order and scores the first candidate that passes them all.
func (d *CupAndHandleDetector) Detect(candles []models.Candle) analysis.Result {
	kind := d.Kind()
	n := len(candles)
	if n < CupMinBars {
		return analysis.NoMatch(kind, analysis.ReasonInsufficientData, "not enough data (%d bars, need %d)", n, CupMinBars)
	}

	highs := models.Highs(candles)
	lows := models.Lows(candles)

	// Right rim: highest high of the recent window.
	lookback := n
	if lookback > RightRimLookback {
		lookback = RightRimLookback
	}
	rightIdx := ArgMax(highs, n-lookback, n)
	rightRim := highs[rightIdx]

	barsSinceRim := n - 1 - rightIdx
	if barsSinceRim > MaxHandleBars {
		return analysis.NoMatch(kind, analysis.ReasonStalePattern, "old pattern (%d bars since right rim)", barsSinceRim)
	}

	// Left rim: highest high before the right rim, leaving a minimum cup width.
	searchEnd := rightIdx - MinCupWidth
	searchStart := searchEnd - LeftRimLookback
	if searchStart < 0 {
		searchStart = 0
	}
	if searchEnd-searchStart < MinLeftRimSearch {
		return analysis.NoMatch(kind, analysis.ReasonPatternTooShort, "pattern too short (%d bars before right rim)", searchEnd-searchStart)
	}
	leftIdx := ArgMax(highs, searchStart, searchEnd)
	leftRim := highs[leftIdx]

	if rightIdx-leftIdx < MinCupBars {
		return analysis.NoMatch(kind, analysis.ReasonCupTooNarrow, "cup too narrow (%d bars)", rightIdx-leftIdx)
	}

	ratio := leftRim / rightRim
	if !(ratio >= MinRimRatio && ratio <= MaxRimRatio) {
		return analysis.NoMatch(kind, analysis.ReasonRimMismatch, "rim mismatch (left/right %.3f)", ratio)
	}

	bottomIdx := ArgMin(lows, leftIdx, rightIdx)
	bottom := lows[bottomIdx]
	depth := 1 - bottom/math.Max(leftRim, rightRim)
	if !(depth >= MinCupDepth && depth <= MaxCupDepth) {
		return analysis.NoMatch(kind, analysis.ReasonInvalidDepth, "invalid depth (%.1f%%)", depth*100)
	}

	derived := indicators.Annotate(candles)
	last := derived.Last(candles)

	factors := scoring.CupFactors{
		Depth:        depth,
		RimRatio:     ratio,
		BarsSinceRim: barsSinceRim,
		Close:        last.Close,
		SMA50:        last.SMA50,
		SMA200:       last.SMA200,
		// Reward is measured exactly like risk, so the reward/risk tier is never reached.
		Risk:   rightRim - bottom,
		Reward: rightRim - bottom,
	}
	if barsSinceRim >= 1 {
		handleLow := lows[ArgMin(lows, rightIdx+1, n)]
		factors.HandleDepth = 1 - handleLow/rightRim
		factors.DistanceToPivot = (rightRim - last.Close) / rightRim
		factors.PostRimVolumes = models.Volumes(candles[rightIdx+1:])
	}

	card := scoring.ScoreCupAndHandle(factors)
	trendOK, _ := trend.CheckTrendTemplate(candles, derived)

	levels := analysis.NoLevels()
	levels.LeftRim, levels.LeftRimIndex = leftRim, leftIdx
	levels.RightRim, levels.RightRimIndex = rightRim, rightIdx
	levels.Bottom, levels.BottomIndex = bottom, bottomIdx

	return analysis.Matched(&analysis.Match{
		Kind:   kind,
		Status: card.Status,
		Score:  card.Score,
		Levels: levels,
		Plan: analysis.TradePlan{
			Pivot:    rightRim,
			StopLoss: bottom,
			Target:   rightRim + (rightRim - bottom),
		},
		Components:     card.Components,
		TrendTemplate:  trendOK,
		VolumeBreakout: trend.CheckVolumeBreakout(candles, derived),
		BarIndex:       n - 1,
	})
}
