package patterns

import (
	"math"
	"testing"

	"chartpattern-scanner/internal/analysis"
)

func TestDetectors_ZeroSeries(t *testing.T) {
	candles := pathCandles(flat(100, 0), 1000)
	for _, det := range DefaultDetectors() {
		res := det.Detect(candles)
		if res.Found {
			t.Errorf("%s: expected no match on an all-zero series, got %s", det.Kind(), res)
			continue
		}
		if res.Reason == analysis.ReasonNone {
			t.Errorf("%s: no match without a reason", det.Kind())
		}
	}
}

func TestDetectors_NaNPriceFailsGates(t *testing.T) {
	// A NaN at the start of each search window becomes the selected extreme,
	// so every ratio derived from it is NaN and must fail its gate.
	base := pathCandles(flat(40, 100), 1000)
	base[19].High = math.NaN()
	if res := NewFlatBaseDetector().Detect(base); res.Found || res.Reason != analysis.ReasonBaseTooWide {
		t.Errorf("flat base = %v/%s, want %s", res.Found, res.Reason, analysis.ReasonBaseTooWide)
	}

	flag := pathCandles(linear(knot{0, 100}, knot{34, 100}, knot{44, 125}, knot{59, 121}), 1000)
	flag[35].High = math.NaN()
	if res := NewBullFlagDetector().Detect(flag); res.Found || res.Reason != analysis.ReasonWeakPole {
		t.Errorf("bull flag = %v/%s, want %s", res.Found, res.Reason, analysis.ReasonWeakPole)
	}

	for _, det := range DefaultDetectors() {
		res := det.Detect(base)
		if res.Found && (math.IsNaN(res.Match.Plan.Pivot) || math.IsNaN(res.Match.Plan.Target)) {
			t.Errorf("%s: match with a non-finite plan %+v", det.Kind(), res.Match.Plan)
		}
	}
}
