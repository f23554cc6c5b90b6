package scoring

import "chartpattern-scanner/internal/analysis"

// BreakoutModel scores consolidation patterns that resolve through a horizontal pivot.
type BreakoutModel struct {
	Base           int
	BreakoutPoints int
	VolumePoints   int
	NearPoints     int
	NearDistance   float64
}

var (
	BullFlagModel = BreakoutModel{Base: 65, BreakoutPoints: 20, VolumePoints: 10, NearPoints: 10, NearDistance: 0.04}
	FlatBaseModel = BreakoutModel{Base: 60, BreakoutPoints: 20, VolumePoints: 15, NearPoints: 10, NearDistance: 0.02}
)

// BreakoutFactors are the inputs of a BreakoutModel.
type BreakoutFactors struct {
	Close          float64
	Pivot          float64
	VolumeBreakout bool
}

// Score grades the pattern. Volume only counts once price has cleared the pivot.
func (m BreakoutModel) Score(f BreakoutFactors) ScoreCard {
	card := newScoreCard(m.Base)
	switch {
	case f.Close > f.Pivot:
		card.Status = analysis.StatusBreakout
		card.add(ComponentBreakout, m.BreakoutPoints)
		if f.VolumeBreakout {
			card.add(ComponentVolume, m.VolumePoints)
		}
	case f.Pivot > 0 && (f.Pivot-f.Close)/f.Pivot < m.NearDistance:
		card.Status = analysis.StatusNearPivot
		card.add(ComponentPivot, m.NearPoints)
	}
	card.Score = clamp(card.Score, m.Base, MaxScore)
	return *card
}
