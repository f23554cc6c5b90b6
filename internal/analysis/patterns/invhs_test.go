package patterns

import (
	"testing"

	"chartpattern-scanner/internal/analysis"
)

func TestInverseHeadAndShoulders_Breakout(t *testing.T) {
	res := NewInverseHeadAndShouldersDetector().Detect(ihsFixture(61))
	if !res.Found {
		t.Fatalf("expected a match, got %s (%s)", res.Reason, res.Detail)
	}
	m := res.Match

	if m.Levels.LeftShoulderIndex != 30 || m.Levels.HeadIndex != 50 || m.Levels.RightShoulderIdx != 70 {
		t.Errorf("troughs at %d/%d/%d, want 30/50/70",
			m.Levels.LeftShoulderIndex, m.Levels.HeadIndex, m.Levels.RightShoulderIdx)
	}
	if m.Levels.Neckline != 60 {
		t.Errorf("Neckline = %.2f, want 60", m.Levels.Neckline)
	}
	if m.Status != analysis.StatusBreakout {
		t.Errorf("Status = %s, want BREAKOUT", m.Status)
	}
	if m.Score != 70 {
		t.Errorf("Score = %d, want 70", m.Score)
	}
	if m.Plan.Pivot != 60 || m.Plan.StopLoss != 52 || m.Plan.Target != 80 {
		t.Errorf("plan = %+v, want pivot 60 stop 52 target 80", m.Plan)
	}
}

func TestInverseHeadAndShoulders_VolumeBonus(t *testing.T) {
	candles := ihsFixture(61)
	candles[len(candles)-1].Volume = 5000

	res := NewInverseHeadAndShouldersDetector().Detect(candles)
	if !res.Found {
		t.Fatalf("expected a match, got %s", res.Detail)
	}
	if !res.Match.VolumeBreakout || res.Match.Score != 90 {
		t.Errorf("volume=%v score=%d, want true/90", res.Match.VolumeBreakout, res.Match.Score)
	}
}

func TestInverseHeadAndShoulders_Forming(t *testing.T) {
	res := NewInverseHeadAndShouldersDetector().Detect(ihsFixture(58))
	if !res.Found {
		t.Fatalf("expected a match, got %s", res.Detail)
	}
	if res.Match.Status != analysis.StatusForming || res.Match.Score != 60 {
		t.Errorf("got %s/%d, want FORMING/60", res.Match.Status, res.Match.Score)
	}
}

func TestInverseHeadAndShoulders_Rejections(t *testing.T) {
	headNotLowest := linear(
		knot{0, 70}, knot{30, 40}, knot{40, 60}, knot{50, 45},
		knot{60, 60}, knot{70, 52}, knot{80, 60}, knot{99, 61},
	)
	skewed := linear(
		knot{0, 70}, knot{30, 30}, knot{40, 60}, knot{50, 20},
		knot{60, 60}, knot{70, 52}, knot{80, 60}, knot{99, 61},
	)

	tests := []struct {
		name   string
		prices []float64
		reason analysis.Reason
	}{
		{"too short", flat(59, 50), analysis.ReasonInsufficientData},
		{"flat series", flat(120, 50), analysis.ReasonNoTroughs},
		{"collapsed below neckline", linear(
			knot{0, 70}, knot{30, 50}, knot{40, 60}, knot{50, 40},
			knot{60, 60}, knot{70, 52}, knot{80, 60}, knot{99, 50},
		), analysis.ReasonNoValidTriple},
		{"head not lowest", headNotLowest, analysis.ReasonNoValidTriple},
		{"asymmetric shoulders", skewed, analysis.ReasonNoValidTriple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewInverseHeadAndShouldersDetector().Detect(pathCandles(tt.prices, 1000))
			if res.Found {
				t.Fatalf("expected no match, got %s", res)
			}
			if res.Reason != tt.reason {
				t.Errorf("Reason = %s (%s), want %s", res.Reason, res.Detail, tt.reason)
			}
		})
	}
}

func TestInverseHeadAndShoulders_OldTroughsIgnored(t *testing.T) {
	// The formation sits more than 250 bars back; a steady advance follows it.
	candles := ihsFixture(61)
	tail := pathCandles(linear(knot{0, 61}, knot{299, 90}), 1000)
	for i := range tail {
		tail[i].Timestamp = candles[len(candles)-1].Timestamp.AddDate(0, 0, i+1)
	}
	candles = append(candles, tail...)

	res := NewInverseHeadAndShouldersDetector().Detect(candles)
	if res.Found {
		t.Fatalf("expected no match, got %s", res)
	}
	if res.Reason != analysis.ReasonNotEnoughRecent {
		t.Errorf("Reason = %s, want %s", res.Reason, analysis.ReasonNotEnoughRecent)
	}
}

func TestInverseHeadAndShoulders_SkipsFailedTriple(t *testing.T) {
	// Troughs at 20 (45), 40 (50), 60 (40), 80 (51). The first triple has its
	// middle trough above the left one; the next triple is a valid formation.
	prices := linear(
		knot{0, 70}, knot{20, 45}, knot{30, 60}, knot{40, 50}, knot{50, 60},
		knot{60, 40}, knot{70, 60}, knot{80, 51}, knot{90, 60}, knot{99, 61},
	)

	res := NewInverseHeadAndShouldersDetector().Detect(pathCandles(prices, 1000))
	if !res.Found {
		t.Fatalf("expected a match, got %s (%s)", res.Reason, res.Detail)
	}
	l := res.Match.Levels
	if l.LeftShoulderIndex != 40 || l.HeadIndex != 60 || l.RightShoulderIdx != 80 {
		t.Errorf("troughs at %d/%d/%d, want 40/60/80", l.LeftShoulderIndex, l.HeadIndex, l.RightShoulderIdx)
	}
	if l.Neckline != 60 {
		t.Errorf("Neckline = %.2f, want 60", l.Neckline)
	}
}

func TestInverseHeadAndShoulders_FirstValidTripleWins(t *testing.T) {
	// Troughs at 15 (50), 35 (40), 55 (52), 75 (42), 92 (53): both
	// (15,35,55) and (55,75,92) are valid formations.
	prices := linear(
		knot{0, 70}, knot{15, 50}, knot{25, 60}, knot{35, 40}, knot{45, 60},
		knot{55, 52}, knot{65, 60}, knot{75, 42}, knot{85, 60}, knot{92, 53}, knot{99, 61},
	)

	res := NewInverseHeadAndShouldersDetector().Detect(pathCandles(prices, 1000))
	if !res.Found {
		t.Fatalf("expected a match, got %s (%s)", res.Reason, res.Detail)
	}
	l := res.Match.Levels
	if l.LeftShoulderIndex != 15 || l.HeadIndex != 35 || l.RightShoulderIdx != 55 {
		t.Errorf("troughs at %d/%d/%d, want the earliest triple 15/35/55",
			l.LeftShoulderIndex, l.HeadIndex, l.RightShoulderIdx)
	}
}
