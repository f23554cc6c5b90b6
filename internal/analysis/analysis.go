// Package analysis provides the result types shared by the indicator engine,
// the pattern detectors and the scoring models.
package analysis

import (
	"fmt"

	"chartpattern-scanner/internal/models"
)

// Detector defines the interface for a single chart pattern detector.
// Detect must be a pure function of its input and never mutate candles.
type Detector interface {
	Kind() PatternKind
	Detect(candles []models.Candle) Result
}

// PatternKind identifies a chart formation.
type PatternKind string

const (
	CupAndHandle            PatternKind = "CUP_AND_HANDLE"
	InverseHeadAndShoulders PatternKind = "INVERSE_HEAD_AND_SHOULDERS"
	BullFlag                PatternKind = "BULL_FLAG"
	FlatBase                PatternKind = "FLAT_BASE"
)

// DisplayName returns the human-readable pattern name.
func (k PatternKind) DisplayName() string {
	switch k {
	case CupAndHandle:
		return "Cup & Handle"
	case InverseHeadAndShoulders:
		return "Inv H&S"
	case BullFlag:
		return "Bull Flag"
	case FlatBase:
		return "VCP / Flat Base"
	default:
		return string(k)
	}
}

// PatternStatus is the lifecycle stage of a matched pattern.
type PatternStatus string

const (
	StatusForming   PatternStatus = "FORMING"
	StatusNearPivot PatternStatus = "NEAR_PIVOT"
	StatusBreakout  PatternStatus = "BREAKOUT"
	StatusWeakSetup PatternStatus = "WEAK_SETUP"
)

// Reason is a machine-readable code explaining why a detector found no pattern.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientData  Reason = "insufficient_data"
	ReasonStalePattern      Reason = "stale_pattern"
	ReasonPatternTooShort   Reason = "pattern_too_short"
	ReasonCupTooNarrow      Reason = "cup_too_narrow"
	ReasonRimMismatch       Reason = "rim_mismatch"
	ReasonInvalidDepth      Reason = "invalid_depth"
	ReasonNoTroughs         Reason = "no_troughs"
	ReasonNotEnoughRecent   Reason = "not_enough_recent_troughs"
	ReasonNoValidTriple     Reason = "no_valid_triple"
	ReasonNoPoleBase        Reason = "no_pole_base"
	ReasonWeakPole          Reason = "weak_pole"
	ReasonFlagTooDeep       Reason = "flag_too_deep"
	ReasonBaseTooWide       Reason = "base_too_wide"
)

// Levels holds the geometric price points of a match. Fields that do not
// apply to a pattern kind are left zero; indices are -1 when unused.
type Levels struct {
	LeftRim       float64 `json:"left_rim"`
	LeftRimIndex  int     `json:"left_rim_index"`
	RightRim      float64 `json:"right_rim"`
	RightRimIndex int     `json:"right_rim_index"`
	Bottom        float64 `json:"bottom"`
	BottomIndex   int     `json:"bottom_index"`

	LeftShoulder      float64 `json:"left_shoulder"`
	LeftShoulderIndex int     `json:"left_shoulder_index"`
	Head              float64 `json:"head"`
	HeadIndex         int     `json:"head_index"`
	RightShoulder     float64 `json:"right_shoulder"`
	RightShoulderIdx  int     `json:"right_shoulder_index"`
	Neckline          float64 `json:"neckline"`
}

// NoLevels returns Levels with every index marked unused.
func NoLevels() Levels {
	return Levels{
		LeftRimIndex:      -1,
		RightRimIndex:     -1,
		BottomIndex:       -1,
		LeftShoulderIndex: -1,
		HeadIndex:         -1,
		RightShoulderIdx:  -1,
	}
}

// TradePlan is the suggested entry, protective stop and projected target.
type TradePlan struct {
	Pivot    float64 `json:"pivot"`
	StopLoss float64 `json:"stop_loss"`
	Target   float64 `json:"target"`
}

// Risk is the distance from pivot down to the stop.
func (p TradePlan) Risk() float64 {
	return p.Pivot - p.StopLoss
}

// Reward is the distance from pivot up to the target.
func (p TradePlan) Reward() float64 {
	return p.Target - p.Pivot
}

// RewardRisk returns Reward/Risk, or 0 when risk is not positive.
func (p TradePlan) RewardRisk() float64 {
	risk := p.Risk()
	if risk <= 0 {
		return 0
	}
	return p.Reward() / risk
}

// Match is a structured pattern hypothesis with its score.
type Match struct {
	Kind           PatternKind    `json:"kind"`
	Status         PatternStatus  `json:"status"`
	Score          int            `json:"score"`
	Levels         Levels         `json:"levels"`
	Plan           TradePlan      `json:"plan"`
	Components     map[string]int `json:"components"`
	TrendTemplate  bool           `json:"trend_template"`
	VolumeBreakout bool           `json:"volume_breakout"`
	// BarIndex is the index of the bar the match was evaluated on (the latest bar).
	BarIndex       int            `json:"bar_index"`
}

// Result is the outcome of one detector call: either a Match or a Reason.
type Result struct {
	Kind   PatternKind `json:"kind"`
	Found  bool        `json:"found"`
	Reason Reason      `json:"reason,omitempty"`
	Detail string      `json:"detail,omitempty"`
	Match  *Match      `json:"match,omitempty"`
}

// Matched builds a positive result.
func Matched(m *Match) Result {
	return Result{Kind: m.Kind, Found: true, Match: m}
}

// NoMatch builds a negative result with a reason and a formatted detail.
func NoMatch(kind PatternKind, reason Reason, format string, args ...interface{}) Result {
	return Result{
		Kind:   kind,
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}

// String renders a short description of the result.
func (r Result) String() string {
	if r.Found && r.Match != nil {
		return fmt.Sprintf("%s %s score=%d pivot=%.2f", r.Kind.DisplayName(), r.Match.Status, r.Match.Score, r.Match.Plan.Pivot)
	}
	return fmt.Sprintf("%s: %s", r.Kind.DisplayName(), r.Detail)
}
