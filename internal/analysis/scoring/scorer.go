// Package scoring provides the deterministic point-accumulation models that grade
// detected chart patterns.
package scoring

import (
	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/indicators"
)

// Component names reported in ScoreCard.Components.
const (
	ComponentBase        = "base"
	ComponentDepth       = "depth"
	ComponentSymmetry    = "symmetry"
	ComponentHandle      = "handle"
	ComponentPivot       = "pivot"
	ComponentVolumeDryUp = "volume_dry_up"
	ComponentAboveSMA50  = "above_sma50"
	ComponentAboveSMA200 = "above_sma200"
	ComponentRewardRisk  = "reward_risk"
	ComponentVolume      = "volume"
	ComponentBreakout    = "breakout"
)

const (
	CupBaseScore = 25
	IHSBaseScore = 60
	MaxScore     = 100

	breakoutDistance  = 0.02
	nearPivotDistance = 0.05
	minDryUpBars      = 5
	strongDryUpRatio  = 0.7
)

// ScoreCard is the output of a scoring model.
type ScoreCard struct {
	Score      int
	Status     analysis.PatternStatus
	Components map[string]int
}

func newScoreCard(base int) *ScoreCard {
	return &ScoreCard{
		Score:      base,
		Status:     analysis.StatusForming,
		Components: map[string]int{ComponentBase: base},
	}
}

func (c *ScoreCard) add(component string, points int) {
	c.Components[component] = points
	c.Score += points
}

// CupFactors are the independently evaluated inputs of the cup & handle model.
type CupFactors struct {
	Depth    float64
	RimRatio float64

	// BarsSinceRim counts bars after the right rim. HandleDepth and
	// DistanceToPivot are only meaningful when it is at least 1.
	BarsSinceRim    int
	HandleDepth     float64
	DistanceToPivot float64

	Close  float64
	SMA50  float64
	SMA200 float64

	// PostRimVolumes are the volumes of the bars after the right rim.
	PostRimVolumes []float64

	Risk   float64
	Reward float64
}

// ScoreCupAndHandle grades a cup & handle. The result is clamped to [25, 100].
func ScoreCupAndHandle(f CupFactors) ScoreCard {
	card := newScoreCard(CupBaseScore)

	card.add(ComponentDepth, CupDepthTiers.Points(f.Depth))
	card.add(ComponentSymmetry, RimSymmetryTiers.Points(f.RimRatio))

	if f.BarsSinceRim >= 1 {
		card.add(ComponentHandle, HandleDepthTiers.Points(f.HandleDepth))

		status, points := pivotStatus(f.DistanceToPivot, f.Close, f.SMA50)
		card.Status = status
		card.add(ComponentPivot, points)
	}

	if f.BarsSinceRim >= minDryUpBars {
		card.add(ComponentVolumeDryUp, volumeDryUp(f.PostRimVolumes))
	}

	if indicators.Defined(f.SMA50) && f.Close > f.SMA50 {
		card.add(ComponentAboveSMA50, 5)
	}
	if indicators.Defined(f.SMA200) && f.Close > f.SMA200 {
		card.add(ComponentAboveSMA200, 5)
	}

	rr := 0.0
	if f.Risk > 0 {
		rr = f.Reward / f.Risk
	}
	card.add(ComponentRewardRisk, RewardRiskTiers.Points(rr))

	card.Score = clamp(card.Score, CupBaseScore, MaxScore)
	return *card
}

// pivotStatus maps the distance to the pivot and the SMA50 relation onto a status.
func pivotStatus(dist, close, sma50 float64) (analysis.PatternStatus, int) {
	above := !indicators.Defined(sma50) || close >= sma50
	switch {
	case dist <= breakoutDistance && above:
		return analysis.StatusBreakout, 10
	case dist <= nearPivotDistance && above:
		return analysis.StatusNearPivot, 5
	case dist <= nearPivotDistance:
		return analysis.StatusWeakSetup, -5
	default:
		return analysis.StatusForming, 0
	}
}

// volumeDryUp compares the mean volume of the second half of vols against the first.
func volumeDryUp(vols []float64) int {
	half := len(vols) / 2
	if half == 0 || half == len(vols) {
		return 0
	}
	first := average(vols[:half])
	second := average(vols[half:])
	switch {
	case second < strongDryUpRatio*first:
		return 10
	case second < first:
		return 5
	default:
		return 0
	}
}

// IHSFactors are the inputs of the inverse head & shoulders model.
type IHSFactors struct {
	Close          float64
	Neckline       float64
	VolumeBreakout bool
}

// ScoreInverseHeadAndShoulders grades an inverse head & shoulders.
func ScoreInverseHeadAndShoulders(f IHSFactors) ScoreCard {
	card := newScoreCard(IHSBaseScore)
	if f.VolumeBreakout {
		card.add(ComponentVolume, 20)
	}
	if f.Close > f.Neckline {
		card.Status = analysis.StatusBreakout
		card.add(ComponentBreakout, 10)
	}
	return *card
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// clamp restricts a value to a range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
