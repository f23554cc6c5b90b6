// Package report exports ranked scan hits.
package report

import (
	"io"
	"math"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"chartpattern-scanner/internal/scanner"
)

// Fixed is a decimal rendered with exactly two places.
type Fixed struct {
	decimal.Decimal
}

// MarshalCSV renders the value with two decimal places.
func (f Fixed) MarshalCSV() (string, error) {
	return f.StringFixed(2), nil
}

// MarshalJSON renders the value as a JSON number with two decimal places.
func (f Fixed) MarshalJSON() ([]byte, error) {
	return []byte(f.StringFixed(2)), nil
}

func fixed(d decimal.Decimal) Fixed {
	return Fixed{d.Round(2)}
}

// fromFloat converts a price, mapping NaN and infinities to zero.
func fromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Row is one exported hit.
type Row struct {
	Ticker    string `csv:"ticker" json:"ticker"`
	Pattern   string `csv:"pattern" json:"pattern"`
	Status    string `csv:"status" json:"status"`
	Score     int    `csv:"score" json:"score"`
	Pivot     Fixed  `csv:"pivot" json:"pivot"`
	StopLoss  Fixed  `csv:"stop_loss" json:"stop_loss"`
	Target    Fixed  `csv:"target" json:"target"`
	RiskPct   Fixed  `csv:"risk_pct" json:"risk_pct"`
	RewardPct Fixed  `csv:"reward_pct" json:"reward_pct"`
}

var hundred = decimal.NewFromInt(100)

// NewRow converts a hit. Risk and reward are percentages of the pivot.
func NewRow(h scanner.Hit) Row {
	plan := h.Match.Plan
	pivot := fromFloat(plan.Pivot)
	stop := fromFloat(plan.StopLoss)
	target := fromFloat(plan.Target)

	row := Row{
		Ticker:   h.Symbol,
		Pattern:  h.Match.Kind.DisplayName(),
		Status:   string(h.Match.Status),
		Score:    h.Match.Score,
		Pivot:    fixed(pivot),
		StopLoss: fixed(stop),
		Target:   fixed(target),
	}
	if pivot.IsPositive() {
		row.RiskPct = fixed(pivot.Sub(stop).Div(pivot).Mul(hundred))
		row.RewardPct = fixed(target.Sub(pivot).Div(pivot).Mul(hundred))
	}
	return row
}

// Rows converts hits in order.
func Rows(hits []scanner.Hit) []Row {
	rows := make([]Row, len(hits))
	for i, h := range hits {
		rows[i] = NewRow(h)
	}
	return rows
}

// WriteCSV writes hits with a header row. An empty hit list writes only the header.
func WriteCSV(w io.Writer, hits []scanner.Hit) error {
	rows := Rows(hits)
	if len(rows) == 0 {
		_, err := io.WriteString(w, "ticker,pattern,status,score,pivot,stop_loss,target,risk_pct,reward_pct\n")
		return err
	}
	return gocsv.Marshal(rows, w)
}
