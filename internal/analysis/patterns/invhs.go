package patterns

import (
	"math"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/indicators"
	"chartpattern-scanner/internal/analysis/scoring"
	"chartpattern-scanner/internal/analysis/trend"
	"chartpattern-scanner/internal/models"
)

// Inverse head & shoulders limits.
const (
	IHSMinBars          = 60
	TroughRadius        = 5
	TroughLookback      = 250
	MaxShoulderSkew     = 0.20
	HeadDepthFactor     = 0.98
	NecklineConfirmMult = 0.95
)

// InverseHeadAndShouldersDetector looks for three consecutive close-price troughs
// with the middle one lowest.
type InverseHeadAndShouldersDetector struct{}

// NewInverseHeadAndShouldersDetector creates a new inverse head & shoulders detector.
func NewInverseHeadAndShouldersDetector() *InverseHeadAndShouldersDetector {
	return &InverseHeadAndShouldersDetector{}
}

func (d *InverseHeadAndShouldersDetector) Kind() analysis.PatternKind {
	return analysis.InverseHeadAndShoulders
}

// Detect scans trough triples oldest first and returns the first one that passes every gate.
func (d *InverseHeadAndShouldersDetector) Detect(candles []models.Candle) analysis.Result {
	kind := d.Kind()
	n := len(candles)
	if n < IHSMinBars {
		return analysis.NoMatch(kind, analysis.ReasonInsufficientData, "not enough data (%d bars, need %d)", n, IHSMinBars)
	}

	derived := indicators.Annotate(candles)
	closes := models.Closes(candles)

	troughs := LocalMinima(closes, TroughRadius)
	if len(troughs) < 3 {
		return analysis.NoMatch(kind, analysis.ReasonNoTroughs, "no troughs (%d found)", len(troughs))
	}

	var recent []int
	for _, idx := range troughs {
		if idx >= n-TroughLookback {
			recent = append(recent, idx)
		}
	}
	if len(recent) < 3 {
		return analysis.NoMatch(kind, analysis.ReasonNotEnoughRecent, "not enough recent troughs (%d)", len(recent))
	}

	current := closes[n-1]
	for i := 0; i+2 < len(recent); i++ {
		ls, head, rs := recent[i], recent[i+1], recent[i+2]
		lsPrice, headPrice, rsPrice := closes[ls], closes[head], closes[rs]

		if !(headPrice < lsPrice && headPrice < rsPrice) {
			continue
		}
		if !(math.Abs(lsPrice-rsPrice)/rsPrice <= MaxShoulderSkew) {
			continue
		}
		if !(headPrice < (lsPrice+rsPrice)/2*HeadDepthFactor) {
			continue
		}

		leftPeak := closes[ArgMax(closes, ls, head+1)]
		rightPeak := closes[ArgMax(closes, head, rs+1)]
		neckline := (leftPeak + rightPeak) / 2
		if !(current >= neckline*NecklineConfirmMult) {
			continue
		}

		volumeOK := trend.CheckVolumeBreakout(candles, derived)
		card := scoring.ScoreInverseHeadAndShoulders(scoring.IHSFactors{
			Close:          current,
			Neckline:       neckline,
			VolumeBreakout: volumeOK,
		})
		trendOK, _ := trend.CheckTrendTemplate(candles, derived)

		levels := analysis.NoLevels()
		levels.LeftShoulder, levels.LeftShoulderIndex = lsPrice, ls
		levels.Head, levels.HeadIndex = headPrice, head
		levels.RightShoulder, levels.RightShoulderIdx = rsPrice, rs
		levels.Neckline = neckline

		return analysis.Matched(&analysis.Match{
			Kind:   kind,
			Status: card.Status,
			Score:  card.Score,
			Levels: levels,
			Plan: analysis.TradePlan{
				Pivot:    neckline,
				StopLoss: rsPrice,
				Target:   neckline + (neckline - headPrice),
			},
			Components:     card.Components,
			TrendTemplate:  trendOK,
			VolumeBreakout: volumeOK,
			BarIndex:       n - 1,
		})
	}

	return analysis.NoMatch(kind, analysis.ReasonNoValidTriple, "no valid shoulder/head triple among %d troughs", len(recent))
}
