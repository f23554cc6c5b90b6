package scoring

import "math"

// Tier awards Points when a value falls inside the closed range [Min, Max].
type Tier struct {
	Min    float64
	Max    float64
	Points int
	Label  string
}

// Contains reports whether v lies in the tier's closed range.
func (t Tier) Contains(v float64) bool {
	return v >= t.Min && v <= t.Max
}

// Tiers is an ordered tier table. Tables list the highest-paying tier first.
type Tiers []Tier

// Lookup returns the first tier containing v. NaN never matches.
func (ts Tiers) Lookup(v float64) (Tier, bool) {
	if math.IsNaN(v) {
		return Tier{}, false
	}
	for _, t := range ts {
		if t.Contains(v) {
			return t, true
		}
	}
	return Tier{}, false
}

// Points returns the points of the first matching tier, or 0.
func (ts Tiers) Points(v float64) int {
	t, ok := ts.Lookup(v)
	if !ok {
		return 0
	}
	return t.Points
}

var inf = math.Inf(1)

// Cup & handle factor tables.
var (
	CupDepthTiers = Tiers{
		{Min: 0.15, Max: 0.33, Points: 15, Label: "ideal"},
		{Min: 0.12, Max: 0.40, Points: 10, Label: "acceptable"},
	}

	RimSymmetryTiers = Tiers{
		{Min: 0.95, Max: 1.05, Points: 10, Label: "excellent"},
		{Min: 0.90, Max: 1.10, Points: 5, Label: "good"},
	}

	HandleDepthTiers = Tiers{
		{Min: -inf, Max: 0.08, Points: 15, Label: "tight"},
		{Min: -inf, Max: 0.12, Points: 10, Label: "normal"},
		{Min: -inf, Max: 0.15, Points: 5, Label: "loose"},
	}

	RewardRiskTiers = Tiers{
		{Min: 3.0, Max: inf, Points: 10, Label: "favourable"},
	}
)
